package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Mail     MailConfig     `mapstructure:"mail"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	FollowUp FollowUpConfig `mapstructure:"followup"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Database DatabaseConfig `mapstructure:"database"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Scan     ScanConfig     `mapstructure:"scan"`
}

// APIConfig contains HTTP server settings.
// SubmitRateLimit 为每个客户端 IP 每小时允许的提交次数，0 表示不限制。
type APIConfig struct {
	Port            int    `mapstructure:"port"`
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"`
	AllowedOrigins  string `mapstructure:"allowed_origins"`
	SubmitRateLimit int    `mapstructure:"submit_rate_limit"`
	InternalSecret  string `mapstructure:"internal_secret"`
}

// StorageConfig 描述 S3 兼容对象存储（默认 AWS S3）。
type StorageConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	Region           string `mapstructure:"region"`
	Bucket           string `mapstructure:"bucket"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// SheetsConfig 选择申请记录的落表方式。
type SheetsConfig struct {
	Backend       string `mapstructure:"backend"`
	Credentials   string `mapstructure:"credentials"`
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	Range         string `mapstructure:"range"`
	XLSXPath      string `mapstructure:"xlsx_path"`
}

// MailConfig contains SMTP relay credentials.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	FromName string `mapstructure:"from_name"`
}

// WebhookConfig 描述提交成功后的外部通知。URL 为空时不发送。
type WebhookConfig struct {
	URL         string        `mapstructure:"url"`
	SenderEmail string        `mapstructure:"sender_email"`
	Status      string        `mapstructure:"status"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// FollowUpConfig 控制次日跟进邮件的发送时间。
type FollowUpConfig struct {
	Hour     int    `mapstructure:"hour"`
	Timezone string `mapstructure:"timezone"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LedgerConfig toggles the PostgreSQL submission ledger.
type LedgerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// WorkerConfig contains asynq worker settings.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// ScanConfig 指向 clamd 守护进程，地址为空时跳过病毒扫描。
type ScanConfig struct {
	ClamdAddr string `mapstructure:"clamd_addr"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Location 解析跟进邮件使用的时区，"Local" 或空值表示进程本地时区。
func (f FollowUpConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(f.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// Origins splits the comma separated CORS origin list.
func (a APIConfig) Origins() []string {
	parts := strings.Split(a.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOps 只读取运维命令需要的数据库与 Redis 配置，其他服务的配置缺失不报错。
func LoadOps() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validateDatabase(cfg.Database); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 5001)
	v.SetDefault("api.max_upload_bytes", 10<<20)
	v.SetDefault("api.allowed_origins", "*")
	v.SetDefault("api.submit_rate_limit", 0)
	v.SetDefault("storage.endpoint", "s3.amazonaws.com")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.auto_create_bucket", false)
	v.SetDefault("sheets.backend", "google")
	v.SetDefault("sheets.range", "Sheet1!A1")
	v.SetDefault("sheets.xlsx_path", "applications.xlsx")
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("webhook.status", "prod")
	v.SetDefault("webhook.timeout", 5*time.Second)
	v.SetDefault("followup.hour", 10)
	v.SetDefault("followup.timezone", "Local")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("ledger.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "cvintake")
	v.SetDefault("database.user", "cvintake")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("worker.concurrency", 10)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                   "PORT",
		"api.max_upload_bytes":       "MAX_UPLOAD_BYTES",
		"api.allowed_origins":        "CORS_ALLOWED_ORIGINS",
		"api.submit_rate_limit":      "SUBMIT_RATE_LIMIT",
		"api.internal_secret":        "INTERNAL_API_SECRET",
		"storage.endpoint":           "S3_ENDPOINT",
		"storage.public_endpoint":    "S3_PUBLIC_ENDPOINT",
		"storage.access_key_id":      "AWS_ACCESS_KEY_ID",
		"storage.secret_access_key":  "AWS_SECRET_ACCESS_KEY",
		"storage.region":             "AWS_REGION",
		"storage.bucket":             "AWS_BUCKET_NAME",
		"storage.use_ssl":            "S3_USE_SSL",
		"storage.auto_create_bucket": "S3_AUTO_CREATE_BUCKET",
		"sheets.backend":             "SHEETS_BACKEND",
		"sheets.credentials":         "GOOGLE_CREDENTIALS",
		"sheets.spreadsheet_id":      "SPREADSHEET_ID",
		"sheets.range":               "SHEETS_RANGE",
		"sheets.xlsx_path":           "SHEETS_XLSX_PATH",
		"mail.host":                  "SMTP_HOST",
		"mail.port":                  "SMTP_PORT",
		"mail.user":                  "EMAIL_USER",
		"mail.password":              "EMAIL_APP_PASSWORD",
		"mail.from_name":             "EMAIL_FROM_NAME",
		"webhook.url":                "WEBHOOK_URL",
		"webhook.sender_email":       "WEBHOOK_SENDER_EMAIL",
		"webhook.status":             "WEBHOOK_STATUS",
		"webhook.timeout":            "WEBHOOK_TIMEOUT",
		"followup.hour":              "FOLLOWUP_HOUR",
		"followup.timezone":          "FOLLOWUP_TIMEZONE",
		"redis.host":                 "REDIS_HOST",
		"redis.port":                 "REDIS_PORT",
		"ledger.enabled":             "LEDGER_ENABLED",
		"database.host":              "DATABASE_HOST",
		"database.port":              "DATABASE_PORT",
		"database.name":              "POSTGRES_DB",
		"database.user":              "POSTGRES_USER",
		"database.password":          "POSTGRES_PASSWORD",
		"database.sslmode":           "DATABASE_SSLMODE",
		"worker.concurrency":         "WORKER_CONCURRENCY",
		"scan.clamd_addr":            "CLAMD_ADDR",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if cfg.API.SubmitRateLimit < 0 {
		return errors.New("submit rate limit must not be negative")
	}
	if cfg.Storage.Endpoint == "" {
		return errors.New("storage endpoint is required")
	}
	if cfg.Storage.AccessKeyID == "" {
		return errors.New("aws access key id is required")
	}
	if cfg.Storage.SecretAccessKey == "" {
		return errors.New("aws secret access key is required")
	}
	if cfg.Storage.Bucket == "" {
		return errors.New("aws bucket name is required")
	}
	switch cfg.Sheets.Backend {
	case "google":
		if cfg.Sheets.Credentials == "" {
			return errors.New("google credentials are required")
		}
		if cfg.Sheets.SpreadsheetID == "" {
			return errors.New("spreadsheet id is required")
		}
	case "xlsx":
		if cfg.Sheets.XLSXPath == "" {
			return errors.New("sheets xlsx path is required")
		}
	default:
		return fmt.Errorf("unknown sheets backend %q", cfg.Sheets.Backend)
	}
	if cfg.Sheets.Range == "" {
		return errors.New("sheets range is required")
	}
	if cfg.Mail.Host == "" {
		return errors.New("smtp host is required")
	}
	if cfg.Mail.Port <= 0 {
		return errors.New("smtp port must be positive")
	}
	if cfg.Mail.User == "" {
		return errors.New("email user is required")
	}
	if cfg.Mail.Password == "" {
		return errors.New("email app password is required")
	}
	if cfg.Webhook.URL != "" && cfg.Webhook.Timeout <= 0 {
		return errors.New("webhook timeout must be positive")
	}
	if cfg.FollowUp.Hour < 0 || cfg.FollowUp.Hour > 23 {
		return errors.New("follow-up hour must be between 0 and 23")
	}
	if _, err := cfg.FollowUp.Location(); err != nil {
		return fmt.Errorf("follow-up timezone: %w", err)
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.Ledger.Enabled {
		if err := validateDatabase(cfg.Database); err != nil {
			return err
		}
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}

func validateDatabase(db DatabaseConfig) error {
	if db.Host == "" {
		return errors.New("database host is required")
	}
	if db.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if db.Name == "" {
		return errors.New("database name is required (POSTGRES_DB)")
	}
	if db.User == "" {
		return errors.New("database user is required (POSTGRES_USER)")
	}
	if db.Password == "" {
		return errors.New("database password is required (POSTGRES_PASSWORD)")
	}
	return nil
}
