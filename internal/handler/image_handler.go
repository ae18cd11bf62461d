package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkedout/api-gateway/internal/config"
	"github.com/linkedout/api-gateway/internal/pkg/response"
	"github.com/linkedout/api-gateway/internal/server/middleware"
)

// allowedImageExtensions bounds what the upload endpoint accepts.
var allowedImageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// ImageHandler serves the local image upload endpoint. Uploads are written
// to a configured directory under a generated name; everything else about
// images is a downstream concern.
type ImageHandler struct {
	dir      string
	maxBytes int64
}

// NewImageHandler creates an ImageHandler from the image configuration.
func NewImageHandler(cfg config.ImageConfig) *ImageHandler {
	return &ImageHandler{dir: cfg.Dir, maxBytes: cfg.MaxBytes}
}

// Upload handles POST /api/images (multipart field "image").
func (h *ImageHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		response.WriteError(c, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	if file.Size > h.maxBytes {
		response.WriteError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("image exceeds %d bytes", h.maxBytes))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedImageExtensions[ext]; !ok {
		response.WriteError(c, http.StatusBadRequest, "unsupported image type "+ext)
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		middleware.Log(c).Error("create upload dir", zap.Error(err))
		response.WriteError(c, http.StatusInternalServerError, "failed to store image")
		return
	}

	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.dir, name)); err != nil {
		middleware.Log(c).Error("save upload", zap.Error(err))
		response.WriteError(c, http.StatusInternalServerError, "failed to store image")
		return
	}

	response.WriteSuccess(c, http.StatusCreated, gin.H{"path": "/images/" + name})
}
