package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"promise"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"promise_tracker"`

	// postgres oder memory (nur für lokale Entwicklung)
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Rolle für Anfragen ohne X-User-Role Header
	DefaultRole string `envconfig:"DEFAULT_ROLE" default:"citizen"`

	S3Key       string `envconfig:"S3_KEY"`
	S3Secret    string `envconfig:"S3_SECRET"`
	S3URL       string `envconfig:"S3_URL"`
	S3Region    string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"evidence-media"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`

	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`

	// Leer = Caching deaktiviert
	RedisURL string        `envconfig:"REDIS_URL"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE" default:"*/30 * * * *"`
	ReconcileRepair   bool   `envconfig:"RECONCILE_REPAIR" default:"false"`
	ReconcileWorkers  int    `envconfig:"RECONCILE_WORKERS" default:"5"`

	BackupBucket string `envconfig:"BACKUP_S3_BUCKET"`
	KeepBackups  int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// MediaConfigured meldet, ob ein S3-Ziel für Uploads konfiguriert ist.
func (c *Config) MediaConfigured() bool {
	return c.S3URL != "" && c.S3Key != "" && c.S3Secret != ""
}

// MediaBaseURL ist die öffentliche Basis-URL für hochgeladene Medien.
func (c *Config) MediaBaseURL() string {
	if c.S3PublicURL != "" {
		return c.S3PublicURL
	}
	return fmt.Sprintf("%s/%s", c.S3URL, c.S3Bucket)
}

// ValidateServer prüft die Einstellungen, die der HTTP-Server braucht.
// Ohne API-Key wäre der X-User-Role Header für jeden Client frei setzbar.
func (c *Config) ValidateServer() error {
	if c.StoreDriver == "postgres" && c.APISecretKey == "" {
		return fmt.Errorf("API_SECRET_KEY must be set when STORE_DRIVER=postgres")
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
