package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/cleaning-ops/internal/application"
	"github.com/example/cleaning-ops/internal/persistence"
	"github.com/example/cleaning-ops/internal/verification"
)

// MaxPhotoBytes bounds a single photo upload.
const MaxPhotoBytes = 10 << 20

var errMissingPhoto = errors.New("multipart field \"photo\" is required")

type verificationService interface {
	Upload(ctx context.Context, input application.UploadPhotoInput) (persistence.Photo, error)
	Review(ctx context.Context, photoID int64, status verification.Status, reason string) (persistence.Photo, error)
	BulkReview(ctx context.Context, ids []int64, status verification.Status, reason string) error
	Summary(ctx context.Context, jobID string) (verification.Summary, error)
	Photos(ctx context.Context, jobID string) ([]persistence.Photo, error)
}

// PhotoHandler serves completion photos and their review.
type PhotoHandler struct {
	service   verificationService
	responder responder
}

func NewPhotoHandler(service verificationService, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{service: service, responder: newResponder(logger)}
}

// Upload handles POST /jobs/{id}/photos as multipart/form-data with a
// "photo" file and optional latitude, longitude, accuracy and capturedAt fields.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	jobID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(MaxPhotoBytes); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingPhoto)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, MaxPhotoBytes+1))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if len(content) > MaxPhotoBytes {
		h.responder.writeFieldError(r.Context(), w, "photo", "photo exceeds the upload limit")
		return
	}

	input := application.UploadPhotoInput{JobID: jobID, Filename: header.Filename, Content: content}
	for _, f := range []struct {
		name string
		dst  **float64
	}{
		{"latitude", &input.Latitude},
		{"longitude", &input.Longitude},
		{"accuracy", &input.AccuracyM},
	} {
		raw := strings.TrimSpace(r.FormValue(f.name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.responder.writeFieldError(r.Context(), w, f.name, "must be a number")
			return
		}
		*f.dst = &v
	}
	if raw := strings.TrimSpace(r.FormValue("capturedAt")); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.responder.writeFieldError(r.Context(), w, "capturedAt", "must be an RFC 3339 timestamp")
			return
		}
		input.CapturedAt = &ts
	}

	photo, err := h.service.Upload(r.Context(), input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPhotoDTO(photo))
}

// Review handles PATCH /photos/{id}.
func (h *PhotoHandler) Review(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPhotoID)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	photo, err := h.service.Review(r.Context(), id, verification.Status(strings.ToLower(strings.TrimSpace(req.Status))), req.Reason)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPhotoDTO(photo))
}

// BulkReview handles POST /photos/bulk-verify. Status defaults to verified.
func (h *PhotoHandler) BulkReview(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bulkReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	status := verification.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if status == "" {
		status = verification.StatusVerified
	}

	if err := h.service.BulkReview(r.Context(), req.PhotoIDs, status, req.Reason); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, bulkReviewResponse{Updated: len(uniqueIDs(req.PhotoIDs)), Status: string(status)})
}

// Verification handles GET /jobs/{id}/verification.
func (h *PhotoHandler) Verification(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	jobID, ok := pathID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingID)
		return
	}

	summary, err := h.service.Summary(r.Context(), jobID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	photos, err := h.service.Photos(r.Context(), jobID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]photoDTO, 0, len(photos))
	for _, p := range photos {
		out = append(out, toPhotoDTO(p))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, verificationResponse{Summary: summary, Photos: out})
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type reviewRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type bulkReviewRequest struct {
	PhotoIDs []int64 `json:"photoIds"`
	Status   string  `json:"status"`
	Reason   string  `json:"reason"`
}

type bulkReviewResponse struct {
	Updated int    `json:"updated"`
	Status  string `json:"status"`
}

type verificationResponse struct {
	Summary verification.Summary `json:"summary"`
	Photos  []photoDTO           `json:"photos"`
}

type photoDTO struct {
	ID              int64    `json:"id"`
	JobID           string   `json:"jobId"`
	Filename        string   `json:"filename"`
	Digest          string   `json:"digest"`
	Status          string   `json:"status"`
	RejectionReason *string  `json:"rejectionReason,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Accuracy        *float64 `json:"accuracy,omitempty"`
	AccuracyBand    string   `json:"accuracyBand"`
	CapturedAt      *string  `json:"capturedAt,omitempty"`
	ReviewedAt      *string  `json:"reviewedAt,omitempty"`
	CreatedAt       string   `json:"createdAt"`
}

func toPhotoDTO(p persistence.Photo) photoDTO {
	return photoDTO{
		ID:              p.ID,
		JobID:           p.JobID,
		Filename:        p.Filename,
		Digest:          p.Digest,
		Status:          p.Status,
		RejectionReason: p.RejectionReason,
		Latitude:        p.Latitude,
		Longitude:       p.Longitude,
		Accuracy:        p.AccuracyM,
		AccuracyBand:    string(verification.ClassifyAccuracy(p.Latitude, p.Longitude, p.AccuracyM)),
		CapturedAt:      formatOptionalTime(p.CapturedAt),
		ReviewedAt:      formatOptionalTime(p.ReviewedAt),
		CreatedAt:       formatTime(p.CreatedAt),
	}
}
