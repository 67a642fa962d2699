package services

import "errors"

// Kind ordnet einen Fehler einer Klasse zu, die der Aufrufer behandeln kann.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidArgument
	KindUnauthorized
	KindUnavailable
)

// Error ist ein fachlicher Fehler. Zwei Errors gelten als gleich, wenn ihr Code übereinstimmt.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrEvidenceNotFound  = &Error{KindNotFound, "evidence_not_found", "specified evidence does not exist"}
	ErrPromiseNotFound   = &Error{KindNotFound, "promise_not_found", "specified promise does not exist"}
	ErrSubmitterNotFound = &Error{KindNotFound, "submitter_not_found", "submitting user not found"}
	ErrVoterNotFound     = &Error{KindNotFound, "submitter_not_found", "voting user not found"}
	ErrUserNotFound      = &Error{KindNotFound, "user_not_found", "user not found"}
	ErrDuplicateVote     = &Error{KindConflict, "duplicate_vote", "user has already voted on this evidence"}
	ErrInvalidVoteType   = &Error{KindInvalidArgument, "invalid_vote_type", "voteType must be one of: upvote, downvote, flag"}
	ErrInvalidStatus     = &Error{KindInvalidArgument, "invalid_status", "invalid status type"}
	ErrInvalidMedia      = &Error{KindInvalidArgument, "invalid_media", "media must be an http(s) url or an uploaded image, video or pdf"}
	ErrInvalidSource     = &Error{KindInvalidArgument, "invalid_source_type", "unknown media source type"}
	ErrUnauthorized      = &Error{KindUnauthorized, "unauthorized", "unauthorized: you can only delete your own evidence"}
	ErrMediaUnavailable  = &Error{KindUnavailable, "media_unavailable", "media hosting is not configured"}
	ErrInvalidEvidence   = &Error{KindInvalidArgument, "invalid_evidence", "title and date_occurred are required"}
)

// KindOf liefert die Fehlerklasse; unbekannte Fehler sind KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
