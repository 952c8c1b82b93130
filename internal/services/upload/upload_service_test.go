package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/config"
	"github.com/rajivgeraev/ecoswap-api/internal/middleware"
	"github.com/rajivgeraev/ecoswap-api/internal/utils"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, x%height, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T, maxBytes int64) (*UploadService, string) {
	t.Helper()
	dir := t.TempDir()
	local := NewLocalStorage(dir, "/uploads/items")
	svc := NewUploadService(local, config.UploadConfig{MaxBytes: maxBytes, MaxWidth: 100}, config.CloudinaryConfig{})
	return svc, dir
}

func TestStoreSavesImage(t *testing.T) {
	svc, dir := newTestService(t, 1<<20)

	stored, err := svc.Store(context.Background(), "photo.png", bytes.NewReader(pngBytes(t, 40, 20)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, "/uploads/items/"))
	assert.True(t, strings.HasSuffix(stored, ".png"))

	_, err = os.Stat(filepath.Join(dir, filepath.Base(stored)))
	assert.NoError(t, err)
}

func TestStoreDownscalesWideImage(t *testing.T) {
	svc, dir := newTestService(t, 1<<20)

	stored, err := svc.Store(context.Background(), "wide.png", bytes.NewReader(pngBytes(t, 400, 200)))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filepath.Base(stored)))
	require.NoError(t, err)
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestStoreRejectsInvalidContent(t *testing.T) {
	svc, _ := newTestService(t, 512)
	ctx := context.Background()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"text disguised as image", []byte("definitely not a picture")},
		{"too large", bytes.Repeat([]byte{0xff}, 600)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Store(ctx, "photo.png", bytes.NewReader(tt.data))
			assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
		})
	}
}

func TestGenerateSignature(t *testing.T) {
	svc := NewUploadService(nil, config.UploadConfig{}, config.CloudinaryConfig{APISecret: "secret"})

	a := svc.GenerateSignature(map[string]string{"timestamp": "1700000000", "folder": "items"})
	b := svc.GenerateSignature(map[string]string{"folder": "items", "timestamp": "1700000000"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)

	other := NewUploadService(nil, config.UploadConfig{}, config.CloudinaryConfig{APISecret: "other"})
	assert.NotEqual(t, a, other.GenerateSignature(map[string]string{"timestamp": "1700000000", "folder": "items"}))
}

func TestUploadParams(t *testing.T) {
	svc, _ := newTestService(t, 1<<20)
	_, err := svc.UploadParams()
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	cld := config.CloudinaryConfig{CloudName: "demo", APIKey: "key", APISecret: "secret", UploadFolder: "items"}
	svc = NewUploadService(nil, config.UploadConfig{}, cld)
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }

	params, err := svc.UploadParams()
	require.NoError(t, err)
	assert.Equal(t, "1700000000", params.Timestamp)
	assert.Equal(t, "demo", params.CloudName)
	assert.Equal(t, svc.GenerateSignature(map[string]string{"timestamp": "1700000000", "folder": "items"}), params.Signature)
}

func multipartImage(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t, 10, 10))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestUploadImageHandler(t *testing.T) {
	svc, dir := newTestService(t, 1<<20)
	jwtService := utils.NewJWTService("test-secret", time.Hour)
	token, err := jwtService.GenerateToken(1)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	NewHandler(svc).SetupRoutes(app, middleware.AuthMiddleware(jwtService))

	body, contentType := multipartImage(t)
	req := httptest.NewRequest(http.MethodPost, "/api/uploads/images", body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, strings.HasPrefix(out.Path, "/uploads/items/"))

	req = httptest.NewRequest(http.MethodPost, "/api/uploads/images", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Корректная форма без токена не сохраняется
	body, contentType = multipartImage(t)
	req = httptest.NewRequest(http.MethodPost, "/api/uploads/images", body)
	req.Header.Set(fiber.HeaderContentType, contentType)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/upload/params", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
