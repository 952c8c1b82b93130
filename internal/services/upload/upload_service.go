package upload

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	// Регистрация декодера GIF для image.DecodeConfig
	_ "image/gif"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
	"github.com/rajivgeraev/ecoswap-api/internal/config"
	"github.com/rajivgeraev/ecoswap-api/internal/metrics"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// UploadService проверяет и сохраняет изображения вещей и профилей
type UploadService struct {
	backend    Backend
	maxBytes   int64
	maxWidth   uint
	cloudinary config.CloudinaryConfig
	now        func() time.Time
}

// NewUploadService создает сервис поверх выбранного хранилища
func NewUploadService(backend Backend, cfg config.UploadConfig, cld config.CloudinaryConfig) *UploadService {
	return &UploadService{
		backend:    backend,
		maxBytes:   cfg.MaxBytes,
		maxWidth:   cfg.MaxWidth,
		cloudinary: cld,
		now:        time.Now,
	}
}

// NewBackend выбирает Cloudinary при наличии учетных данных, иначе локальный диск
func NewBackend(cfg *config.Config) (Backend, error) {
	if cfg.CloudinaryConfig.Enabled() {
		return NewCloudinaryStorage(cfg.CloudinaryConfig)
	}
	return NewLocalStorage(cfg.Upload.Dir, cfg.Upload.PublicURL), nil
}

// Store проверяет размер и тип содержимого, уменьшает широкие изображения
// и сохраняет файл под новым UUID. Возвращает путь или URL.
func (s *UploadService) Store(ctx context.Context, filename string, r io.Reader) (string, error) {
	stored, err := s.store(ctx, r)
	metrics.RecordUpload(s.backend.Name(), err)
	if err != nil {
		return "", err
	}

	log.WithFields(log.Fields{
		"original": filename,
		"stored":   stored,
		"backend":  s.backend.Name(),
	}).Info("Изображение сохранено")
	return stored, nil
}

func (s *UploadService) store(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", apperrors.Internal(errors.Wrap(err, "read upload"))
	}
	if len(data) == 0 {
		return "", apperrors.Validation("image: пустой файл")
	}
	if int64(len(data)) > s.maxBytes {
		return "", apperrors.Validation(fmt.Sprintf("image: размер файла превышает %d байт", s.maxBytes))
	}

	mime := mimetype.Detect(data)
	ext, ok := allowedTypes[mime.String()]
	if !ok {
		return "", apperrors.Validation("image: допустимые форматы: jpeg png gif")
	}

	data, err = s.downscale(data, mime.String())
	if err != nil {
		return "", err
	}

	stored, err := s.backend.Save(ctx, uuid.New().String()+ext, data)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return stored, nil
}

// downscale уменьшает JPEG и PNG шире maxWidth с сохранением пропорций.
// GIF сохраняется как есть, чтобы не терять анимацию.
func (s *UploadService) downscale(data []byte, contentType string) ([]byte, error) {
	if s.maxWidth == 0 || contentType == "image/gif" {
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Validation("image: поврежденное изображение")
	}
	if uint(cfg.Width) <= s.maxWidth {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Validation("image: поврежденное изображение")
	}
	resized := resize.Resize(s.maxWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch contentType {
	case "image/png":
		err = png.Encode(&buf, resized)
	default:
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return nil, apperrors.Internal(errors.Wrap(err, "encode resized image"))
	}
	return buf.Bytes(), nil
}

// SignedParams – параметры прямой загрузки в Cloudinary с клиента
type SignedParams struct {
	Timestamp    string `json:"timestamp"`
	Signature    string `json:"signature"`
	APIKey       string `json:"api_key"`
	CloudName    string `json:"cloud_name"`
	Folder       string `json:"folder"`
	UploadPreset string `json:"upload_preset,omitempty"`
}

// UploadParams подписывает параметры прямой загрузки
func (s *UploadService) UploadParams() (*SignedParams, error) {
	if !s.cloudinary.Enabled() {
		return nil, apperrors.NotFound("загрузка в Cloudinary не настроена")
	}

	timestamp := fmt.Sprintf("%d", s.now().Unix())
	params := map[string]string{
		"timestamp": timestamp,
		"folder":    s.cloudinary.UploadFolder,
	}
	if s.cloudinary.UploadPreset != "" {
		params["upload_preset"] = s.cloudinary.UploadPreset
	}

	return &SignedParams{
		Timestamp:    timestamp,
		Signature:    s.GenerateSignature(params),
		APIKey:       s.cloudinary.APIKey,
		CloudName:    s.cloudinary.CloudName,
		Folder:       s.cloudinary.UploadFolder,
		UploadPreset: s.cloudinary.UploadPreset,
	}, nil
}

// GenerateSignature создает подпись Cloudinary: отсортированные параметры
// key=value через & и API-секрет, хеш SHA-1
func (s *UploadService) GenerateSignature(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	signParts := make([]string, 0, len(keys))
	for _, k := range keys {
		signParts = append(signParts, k+"="+params[k])
	}

	h := sha1.New()
	h.Write([]byte(strings.Join(signParts, "&") + s.cloudinary.APISecret))
	return hex.EncodeToString(h.Sum(nil))
}
