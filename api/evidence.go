package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"promise-tracker/models"
	"promise-tracker/services"
)

// createEvidenceRequest wird als JSON oder multipart/form-data gebunden.
// Bei multipart kann statt media_url eine Datei im Feld "file" mitkommen.
type createEvidenceRequest struct {
	PromiseID    string `json:"promise_id" form:"promise_id" binding:"required,uuid"`
	Title        string `json:"title" form:"title" binding:"required"`
	Description  string `json:"description" form:"description"`
	DateOccurred string `json:"date_occurred" form:"date_occurred" binding:"required"`
	MediaURL     string `json:"media_url" form:"media_url"`
	MediaType    string `json:"media_type" form:"media_type"`
	SourceType   string `json:"source_type" form:"source_type"`
}

type galleryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

type voteRequest struct {
	VoteType string `json:"vote_type" binding:"required,oneof=upvote downvote flag"`
	Comment  string `json:"comment" binding:"max=2000"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

var dateLayouts = []string{"2006-01-02", time.RFC3339}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

type evidenceHandler struct {
	svc            *services.EvidenceService
	log            *zap.Logger
	maxUploadBytes int64
}

func setupEvidenceRoutes(rg *gin.RouterGroup, svc *services.EvidenceService, log *zap.Logger, maxUploadBytes int64) {
	h := &evidenceHandler{svc: svc, log: log, maxUploadBytes: maxUploadBytes}

	rg.GET("/promise/:promiseId", h.listForPromise)
	rg.GET("/promise/:promiseId/gallery", h.gallery)
	rg.GET("/user", requireUser(), h.userEvidence)
	rg.GET("/:id", h.get)
	rg.GET("/:id/votes", h.votes)
	rg.GET("/:id/history", h.history)

	rg.POST("", requireUser(), h.create)
	rg.POST("/:id/verify", requireUser(), h.vote)
	rg.PATCH("/:id/status", requireUser(), requireRole(models.RoleAdmin), h.updateStatus)
	rg.DELETE("/:id", requireUser(), h.delete)
}

func (h *evidenceHandler) listForPromise(c *gin.Context) {
	promiseID, ok := parseID(c, "promiseId")
	if !ok {
		return
	}
	items, err := h.svc.ListForPromise(c.Request.Context(), promiseID, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *evidenceHandler) gallery(c *gin.Context) {
	promiseID, ok := parseID(c, "promiseId")
	if !ok {
		return
	}
	var q galleryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
		return
	}
	items, err := h.svc.MediaGallery(c.Request.Context(), promiseID, q.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// userEvidence liefert die eigenen Belege; Admins können per ?user_id= fremde abfragen.
func (h *evidenceHandler) userEvidence(c *gin.Context) {
	actor := actorFrom(c)
	userID := actor.UserID
	if other := c.Query("user_id"); other != "" && actor.IsAdmin() {
		userID = other
	}
	items, err := h.svc.UserEvidence(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *evidenceHandler) get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ev, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *evidenceHandler) votes(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	votes, err := h.svc.GetVotesForEvidence(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, votes)
}

func (h *evidenceHandler) history(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	events, err := h.svc.StatusHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *evidenceHandler) create(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		if c.Request.ContentLength > h.maxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	var req createEvidenceRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	date, ok := parseDate(req.DateOccurred)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_occurred must be YYYY-MM-DD or RFC3339"})
		return
	}

	media, err := h.mediaInput(c, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := services.EvidenceInput{
		PromiseID:    uuid.MustParse(req.PromiseID),
		Title:        req.Title,
		Description:  req.Description,
		DateOccurred: date,
	}
	ev, err := h.svc.SubmitEvidence(c.Request.Context(), in, media, actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

// mediaInput wählt zwischen hochgeladener Datei und externer URL.
func (h *evidenceHandler) mediaInput(c *gin.Context, req createEvidenceRequest) (services.MediaInput, error) {
	source := models.SourceType(req.SourceType)
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("file")
		switch {
		case err == nil:
			f, err := fh.Open()
			if err != nil {
				return services.MediaInput{}, err
			}
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				return services.MediaInput{}, err
			}
			return services.UploadedMedia(data, source), nil
		case !errors.Is(err, http.ErrMissingFile):
			return services.MediaInput{}, err
		}
	}
	if req.MediaURL == "" {
		return services.MediaInput{}, errors.New("media_url or file is required")
	}
	return services.ExternalMedia(req.MediaURL, models.MediaType(req.MediaType), source), nil
}

func (h *evidenceHandler) vote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vote_type must be one of: upvote, downvote, flag"})
		return
	}
	ev, err := h.svc.SubmitVote(c.Request.Context(), id, actorFrom(c).UserID, models.VoteType(req.VoteType), req.Comment)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *evidenceHandler) updateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ev, err := h.svc.UpdateStatus(c.Request.Context(), id, models.EvidenceStatus(req.Status), actorFrom(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

func (h *evidenceHandler) delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteEvidence(c.Request.Context(), id, actorFrom(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "evidence deleted"})
}
