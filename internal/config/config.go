package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"fabric-catalog/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	MediaCloudinary = "cloudinary"
	MediaLocal      = "local"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Media     MediaConfig
	Catalog   CatalogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	BasePath       string
	AllowedOrigins []string
}

// IsDevelopment reports whether error details and localhost origins are exposed
func (s ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	Schema       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int

	MongoURI      string
	MongoDatabase string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled is false when no Redis host is configured
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AdminConfig is the single admin credential. PasswordHash is a bcrypt hash
// and takes precedence over the plaintext Password.
type AdminConfig struct {
	Email        string
	Name         string
	PasswordHash string
	Password     string
}

type MediaConfig struct {
	Driver string

	CloudName string
	APIKey    string
	APISecret string
	Folder    string

	LocalDir string
	BaseURL  string

	MaxFileSize       int64
	MaxFiles          int
	UploadConcurrency int
	UploadRate        float64 // uploads per second, 0 disables throttling
	UploadBurst       int
}

type CatalogConfig struct {
	// BlockReferencedCategoryDelete refuses to delete a category that
	// products still point at
	BlockReferencedCategoryDelete bool
	// EmptyFieldClears makes an empty optional product field on update
	// clear the stored value
	EmptyFieldClears bool
}

type RateLimitConfig struct {
	LoginRequests int
	LoginWindow   time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first and an optional config.yaml fills in keys the
// environment leaves unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("SERVER_BASE_PATH", "/api")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "catalog")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("ADMIN_NAME", "Admin")
	v.SetDefault("MEDIA_DRIVER", MediaLocal)
	v.SetDefault("MEDIA_FOLDER", "products")
	v.SetDefault("MEDIA_LOCAL_DIR", "uploads")
	v.SetDefault("MEDIA_BASE_URL", "/uploads")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 10<<20)
	v.SetDefault("MEDIA_MAX_FILES", 3)
	v.SetDefault("MEDIA_UPLOAD_CONCURRENCY", 3)
	v.SetDefault("MEDIA_UPLOAD_RATE", 0)
	v.SetDefault("MEDIA_UPLOAD_BURST", 3)
	v.SetDefault("CATALOG_BLOCK_REFERENCED_CATEGORY_DELETE", true)
	v.SetDefault("CATALOG_EMPTY_FIELD_CLEARS", false)
	v.SetDefault("RATE_LIMIT_LOGIN_REQUESTS", 10)
	v.SetDefault("RATE_LIMIT_LOGIN_WINDOW", "15m")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("Warning: Could not read config file: %v", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			BasePath:       v.GetString("SERVER_BASE_PATH"),
			AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Driver:        strings.ToLower(v.GetString("DB_DRIVER")),
			Host:          v.GetString("DB_HOST"),
			Port:          v.GetString("DB_PORT"),
			User:          v.GetString("DB_USER"),
			Password:      v.GetString("DB_PASSWORD"),
			Database:      v.GetString("DB_DATABASE"),
			Schema:        v.GetString("DB_SCHEMA"),
			SSLMode:       v.GetString("DB_SSLMODE"),
			MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
			MongoURI:      v.GetString("MONGO_URI"),
			MongoDatabase: v.GetString("MONGO_DATABASE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetDuration("JWT_EXPIRATION"),
		},
		Admin: AdminConfig{
			Email:        v.GetString("ADMIN_EMAIL"),
			Name:         v.GetString("ADMIN_NAME"),
			PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
			Password:     v.GetString("ADMIN_PASSWORD"),
		},
		Media: MediaConfig{
			Driver:            strings.ToLower(v.GetString("MEDIA_DRIVER")),
			CloudName:         v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:            v.GetString("CLOUDINARY_API_KEY"),
			APISecret:         v.GetString("CLOUDINARY_API_SECRET"),
			Folder:            v.GetString("MEDIA_FOLDER"),
			LocalDir:          v.GetString("MEDIA_LOCAL_DIR"),
			BaseURL:           v.GetString("MEDIA_BASE_URL"),
			MaxFileSize:       v.GetInt64("MEDIA_MAX_FILE_SIZE"),
			MaxFiles:          v.GetInt("MEDIA_MAX_FILES"),
			UploadConcurrency: v.GetInt("MEDIA_UPLOAD_CONCURRENCY"),
			UploadRate:        v.GetFloat64("MEDIA_UPLOAD_RATE"),
			UploadBurst:       v.GetInt("MEDIA_UPLOAD_BURST"),
		},
		Catalog: CatalogConfig{
			BlockReferencedCategoryDelete: v.GetBool("CATALOG_BLOCK_REFERENCED_CATEGORY_DELETE"),
			EmptyFieldClears:              v.GetBool("CATALOG_EMPTY_FIELD_CLEARS"),
		},
		RateLimit: RateLimitConfig{
			LoginRequests: v.GetInt("RATE_LIMIT_LOGIN_REQUESTS"),
			LoginWindow:   v.GetDuration("RATE_LIMIT_LOGIN_WINDOW"),
		},
	}
}

// Validate reports every setting the server cannot start without
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Admin.Email == "" {
		errs = append(errs, errors.New("ADMIN_EMAIL is required"))
	}
	if c.Admin.PasswordHash == "" && c.Admin.Password == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required"))
	}

	switch c.Database.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver))
	}

	switch c.Media.Driver {
	case MediaLocal:
	case MediaCloudinary:
		if c.Media.CloudName == "" || c.Media.APIKey == "" || c.Media.APISecret == "" {
			errs = append(errs, errors.New("cloudinary media driver needs CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_DRIVER %q", c.Media.Driver))
	}

	if c.Media.MaxFiles < 1 || c.Media.MaxFiles > domain.MaxProductImages {
		errs = append(errs, fmt.Errorf("MEDIA_MAX_FILES must be between 1 and %d, got %d", domain.MaxProductImages, c.Media.MaxFiles))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
