package upload

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"

	"github.com/rajivgeraev/ecoswap-api/internal/config"
)

// Backend сохраняет готовый файл и возвращает путь или URL для клиента
type Backend interface {
	Name() string
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// LocalStorage пишет файлы в каталог на диске
type LocalStorage struct {
	dir       string
	publicURL string
}

// NewLocalStorage создает хранилище в dir, файлы отдаются по publicURL
func NewLocalStorage(dir, publicURL string) *LocalStorage {
	return &LocalStorage{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *LocalStorage) Name() string { return "local" }

func (s *LocalStorage) Save(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create upload dir")
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", name)
	}
	return path.Join(s.publicURL, name), nil
}

// CloudinaryStorage загружает файлы в Cloudinary
type CloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage создает клиента по учетным данным из конфигурации
func NewCloudinaryStorage(cfg config.CloudinaryConfig) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, errors.Wrap(err, "init cloudinary")
	}
	return &CloudinaryStorage{cld: cld, folder: cfg.UploadFolder}, nil
}

func (s *CloudinaryStorage) Name() string { return "cloudinary" }

func (s *CloudinaryStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	publicID := strings.TrimSuffix(name, filepath.Ext(name))
	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID: publicID,
		Folder:   s.folder,
	})
	if err != nil {
		return "", errors.Wrap(err, "cloudinary upload")
	}
	if res.Error.Message != "" {
		return "", errors.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}
