package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config структура конфигурации
type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"production"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret  string        `env:"JWT_SECRET,required,notEmpty"`
	JWTTTL     time.Duration `env:"JWT_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	// StorageDriver: postgres или memory (локальный запуск без базы)
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// DatabaseURL имеет приоритет над DatabaseConfig
	DatabaseURL    string `env:"DATABASE_URL"`
	DatabaseConfig DatabaseConfig
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`

	Upload           UploadConfig
	CloudinaryConfig CloudinaryConfig
	RateLimit        RateLimitConfig
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host     string `env:"PGHOST" envDefault:"localhost"`
	Port     string `env:"PGPORT" envDefault:"5432"`
	User     string `env:"PGUSER" envDefault:"ecoswap"`
	Password string `env:"PGPASSWORD" envDefault:"ecoswap"`
	Name     string `env:"PGDATABASE" envDefault:"ecoswap"`
	SSLMode  string `env:"PGSSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	MinConns int32  `env:"DB_MIN_CONNS" envDefault:"2"`
}

// UploadConfig – ограничения и место хранения загружаемых изображений
type UploadConfig struct {
	Dir       string `env:"UPLOAD_DIR" envDefault:"uploads/items"`
	PublicURL string `env:"UPLOAD_PUBLIC_PREFIX" envDefault:"/uploads/items"`
	MaxBytes  int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`
	MaxWidth  uint   `env:"UPLOAD_MAX_WIDTH" envDefault:"1600"`
}

// CloudinaryConfig содержит конфигурацию для Cloudinary
type CloudinaryConfig struct {
	CloudName    string `env:"CLOUDINARY_CLOUD_NAME"`
	APIKey       string `env:"CLOUDINARY_API_KEY"`
	APISecret    string `env:"CLOUDINARY_API_SECRET"`
	UploadPreset string `env:"CLOUDINARY_UPLOAD_PRESET" envDefault:"ecoswap"`
	UploadFolder string `env:"CLOUDINARY_UPLOAD_FOLDER" envDefault:"ecoswap/items"`
}

// Enabled сообщает, заданы ли учетные данные Cloudinary
func (c CloudinaryConfig) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// RateLimitConfig – ограничение частоты попыток входа
type RateLimitConfig struct {
	LoginPerMinute int `env:"LOGIN_RATE_PER_MINUTE" envDefault:"10"`
	LoginBurst     int `env:"LOGIN_BURST" envDefault:"5"`
}

// LoadConfig загружает переменные из .env и окружения
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info(".env файл не найден, используем переменные окружения")
	}
	return Parse()
}

// Parse читает конфигурацию только из окружения
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения конфигурации: %w", err)
	}
	if cfg.StorageDriver != "postgres" && cfg.StorageDriver != "memory" {
		return nil, fmt.Errorf("STORAGE_DRIVER должен быть postgres или memory, получено %q", cfg.StorageDriver)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST должен быть в диапазоне 4..31, получено %d", cfg.BcryptCost)
	}
	return cfg, nil
}

// DSN возвращает строку подключения к базе данных
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	db := c.DatabaseConfig
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     db.Host + ":" + db.Port,
		Path:     "/" + db.Name,
		RawQuery: "sslmode=" + url.QueryEscape(db.SSLMode),
	}
	return u.String()
}

// IsDevelopment сообщает, запущено ли приложение в режиме разработки
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
