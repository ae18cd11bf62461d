package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkedout/api-gateway/internal/config"
)

func newImageEngine(t *testing.T, cfg config.ImageConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/api/images", NewImageHandler(cfg).Upload)
	return engine
}

func multipartImage(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImageUpload(t *testing.T) {
	dir := t.TempDir()
	engine := newImageEngine(t, config.ImageConfig{Dir: dir, MaxBytes: 1024})

	body, contentType := multipartImage(t, "image", "dish.png", []byte("png-bytes"))
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			Path string `json:"path"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.Data.Path, "/images/"))
	assert.True(t, strings.HasSuffix(resp.Data.Path, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(resp.Data.Path, "/images/")))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), stored)
}

func TestImageUploadRejectsMissingField(t *testing.T) {
	engine := newImageEngine(t, config.ImageConfig{Dir: t.TempDir(), MaxBytes: 1024})

	req := httptest.NewRequest("POST", "/api/images", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImageUploadRejectsOversize(t *testing.T) {
	engine := newImageEngine(t, config.ImageConfig{Dir: t.TempDir(), MaxBytes: 8})

	body, contentType := multipartImage(t, "image", "big.png", bytes.Repeat([]byte("x"), 64))
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestImageUploadRejectsUnknownExtension(t *testing.T) {
	engine := newImageEngine(t, config.ImageConfig{Dir: t.TempDir(), MaxBytes: 1024})

	body, contentType := multipartImage(t, "image", "nefarious.exe", []byte("nope"))
	req := httptest.NewRequest("POST", "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
