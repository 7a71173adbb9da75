package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/neo-chat/internal/httpx/response"
	"github.com/vadim/neo-chat/internal/storage"
)

const maxUploadSize = 10 << 20 // 10 MB

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// MediaUploader stores image blobs and returns their public URL.
type MediaUploader interface {
	Upload(ctx context.Context, in storage.UploadInput) (string, error)
}

// MediaHandler handles image upload requests
type MediaHandler struct {
	uploader MediaUploader
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(uploader MediaUploader, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		uploader: uploader,
		logger:   logger,
	}
}

// RegisterRoutes registers media routes
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/media/images", h.Upload())
}

// UploadResponse represents the response after uploading an image
type UploadResponse struct {
	URL string `json:"url"`
}

// Upload handles POST /media/images. Accepts multipart form data with
// an "image" field and returns the public URL of the stored blob.
func (h *MediaHandler) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			response.BadRequest(w, "file too large or invalid form")
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			response.BadRequest(w, "image field is required")
			return
		}
		defer file.Close()

		contentType := header.Header.Get("Content-Type")
		if !allowedImageTypes[contentType] {
			response.BadRequest(w, "unsupported image type")
			return
		}

		url, err := h.uploader.Upload(r.Context(), storage.UploadInput{
			Reader:      file,
			ContentType: contentType,
			Size:        header.Size,
			Filename:    header.Filename,
		})
		if err != nil {
			h.logger.Error("failed to upload image", slog.Any("error", err))
			response.InternalError(w, "failed to upload image")
			return
		}

		response.Created(w, UploadResponse{URL: url})
	}
}
