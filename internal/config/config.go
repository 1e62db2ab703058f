package config

import (
	"os"
	"strconv"
)

// Config collects every runtime setting. Values come from the environment
// (optionally via a .env file loaded in main) with development defaults.
type Config struct {
	Addr    string
	SiteURL string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CachePrefix   string

	SessionSecret string
	JWTSecret     string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	AdminEmail string

	UploadDir     string
	MaxUploadSize int64

	PostsPerPage    int
	CommentsPerPage int
	UsersPerPage    int
}

func Load() *Config {
	return &Config{
		Addr:    ":" + getEnv("PORT", "8080"),
		SiteURL: getEnv("SITE_URL", "http://localhost:8080"),

		DatabaseURL: getEnv("DATABASE_URL",
			"host=localhost user=postgres password=postgres dbname=inkwell port=5432 sslmode=disable"),

		RedisAddr:     os.Getenv("REDIS_ADDR"), // empty means in-memory cache
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CachePrefix:   getEnv("CACHE_KEY_PREFIX", "inkwell:"),

		SessionSecret: getEnv("SESSION_SECRET", "dev-secret-key-change-in-production"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-jwt-secret-change-in-production"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: os.Getenv("SMTP_PORT"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		AdminEmail: getEnv("ADMIN_EMAIL", "admin@inkwell.local"),

		UploadDir:     getEnv("UPLOAD_DIR", "web/static/uploads"),
		MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE", 16<<20)),

		PostsPerPage:    getEnvInt("POSTS_PER_PAGE", 5),
		CommentsPerPage: getEnvInt("COMMENTS_PER_PAGE", 10),
		UsersPerPage:    getEnvInt("USERS_PER_PAGE", 20),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
