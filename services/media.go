package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"promise-tracker/models"
	"promise-tracker/storage"
)

// MediaHost lädt Beweismedien hoch und entfernt sie wieder.
type MediaHost interface {
	Upload(ctx context.Context, data []byte, contentType, ext, kind string) (*storage.HostedMedia, error)
	Delete(ctx context.Context, externalID, kind string) error
}

// MediaKind unterscheidet die beiden Eingangswege für Medien.
type MediaKind int

const (
	MediaExternal MediaKind = iota + 1
	MediaUpload
)

// MediaInput ist die normalisierte Medien-Eingabe: entweder eine externe URL
// oder eine hochgeladene Datei. Die Engine sieht nur das aufgelöste models.Media.
type MediaInput struct {
	Kind       MediaKind
	URL        string
	Type       models.MediaType
	Data       []byte
	SourceType models.SourceType
}

func ExternalMedia(rawURL string, typ models.MediaType, source models.SourceType) MediaInput {
	return MediaInput{Kind: MediaExternal, URL: rawURL, Type: typ, SourceType: source}
}

func UploadedMedia(data []byte, source models.SourceType) MediaInput {
	return MediaInput{Kind: MediaUpload, Data: data, SourceType: source}
}

// Ressourcenarten beim Hoster
const (
	hostKindImage = "image"
	hostKindVideo = "video"
	hostKindRaw   = "raw"
)

// classifyUpload bestimmt Medientyp und Hoster-Art anhand des Inhalts.
func classifyUpload(data []byte) (models.MediaType, string, *mimetype.MIME, bool) {
	mt := mimetype.Detect(data)
	switch {
	case strings.HasPrefix(mt.String(), "image/"):
		return models.MediaImage, hostKindImage, mt, true
	case strings.HasPrefix(mt.String(), "video/"):
		return models.MediaVideo, hostKindVideo, mt, true
	case mt.Is("application/pdf"):
		return models.MediaPDF, hostKindRaw, mt, true
	}
	return "", "", mt, false
}

// ResolveMedia wandelt eine MediaInput in die gespeicherte Medienstruktur um.
// Uploads werden dabei an den MediaHost übertragen.
func (s *EvidenceService) ResolveMedia(ctx context.Context, in MediaInput) (models.Media, error) {
	source := in.SourceType
	if source == "" {
		source = models.SourceOther
	}
	if !source.Valid() {
		return models.Media{}, ErrInvalidSource
	}

	switch in.Kind {
	case MediaExternal:
		u, err := url.Parse(strings.TrimSpace(in.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return models.Media{}, ErrInvalidMedia
		}
		typ := in.Type
		if typ == "" {
			typ = models.MediaLink
		}
		if !typ.Valid() {
			return models.Media{}, ErrInvalidMedia
		}
		return models.Media{URL: u.String(), Type: typ, SourceType: source}, nil

	case MediaUpload:
		if len(in.Data) == 0 {
			return models.Media{}, ErrInvalidMedia
		}
		if s.Media == nil {
			return models.Media{}, ErrMediaUnavailable
		}
		typ, kind, mt, ok := classifyUpload(in.Data)
		if !ok {
			return models.Media{}, ErrInvalidMedia
		}
		hosted, err := s.Media.Upload(ctx, in.Data, mt.String(), mt.Extension(), kind)
		if err != nil {
			return models.Media{}, err
		}
		return models.Media{
			URL:        hosted.URL,
			Type:       typ,
			SourceType: source,
			ExternalID: hosted.ExternalID,
			HostKind:   hosted.Kind,
		}, nil
	}
	return models.Media{}, ErrInvalidMedia
}
