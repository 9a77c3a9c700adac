package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/callscore/internal/domain/analysis"
	"github.com/bryanwahyu/callscore/internal/infra/logging"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		RateLimit       int           `yaml:"rateLimit"` // requests per second per client, 0 disables
		RateBurst       int           `yaml:"rateBurst"`
		CORSOrigins     []string      `yaml:"corsOrigins"`
	} `yaml:"server"`

	Log logging.Config `yaml:"log"`

	OpenAI struct {
		APIKey      string        `yaml:"apiKey"`
		BaseURL     string        `yaml:"baseURL"`
		Model       string        `yaml:"model"`
		Temperature float32       `yaml:"temperature"`
		MaxTokens   int           `yaml:"maxTokens"`
		JSONMode    bool          `yaml:"jsonMode"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"openai"`

	// Rubric overrides names and weights of the fixed categories.
	Rubric struct {
		Version    string                   `yaml:"version"`
		Categories []RubricCategoryOverride `yaml:"categories"`
	} `yaml:"rubric"`

	Reports struct {
		OutputDir string `yaml:"outputDir"`
		KeepLocal bool   `yaml:"keepLocal"`
	} `yaml:"reports"`

	Mail struct {
		Enabled   bool   `yaml:"enabled"`
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		From      string `yaml:"from"`
		Recipient string `yaml:"recipient"`
	} `yaml:"mail"`

	Minio struct {
		Enabled    bool          `yaml:"enabled"`
		Endpoint   string        `yaml:"endpoint"`
		AccessKey  string        `yaml:"accessKey"`
		SecretKey  string        `yaml:"secretKey"`
		BucketName string        `yaml:"bucketName"`
		Region     string        `yaml:"region"`
		UseSSL     bool          `yaml:"useSSL"`
		PresignTTL time.Duration `yaml:"presignTTL"`
	} `yaml:"minio"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql, postgres, or empty to disable
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Kafka struct {
		Enabled        bool     `yaml:"enabled"`
		Brokers        []string `yaml:"brokers"`
		TopicCompleted string   `yaml:"topicCompleted"`
		TopicFailed    string   `yaml:"topicFailed"`
	} `yaml:"kafka"`

	Worker struct {
		Concurrency int `yaml:"concurrency"`
		QueueSize   int `yaml:"queueSize"`
	} `yaml:"worker"`
}

// RubricCategoryOverride replaces the name, weight or description of one
// known category. Unknown keys are rejected by Validate.
type RubricCategoryOverride struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Weight      int    `yaml:"weight"`
	Description string `yaml:"description"`
}

// Load baca .env (optional), file yaml (optional), lalu override dari env
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env only
	default:
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8000
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 15 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.RateLimit = 10
	cfg.Server.RateBurst = 20
	cfg.Log = logging.Config{Level: "info", Format: "json"}
	cfg.OpenAI.Model = "gpt-4.1-mini"
	cfg.OpenAI.Temperature = 0.3
	cfg.OpenAI.MaxTokens = 4000
	cfg.OpenAI.Timeout = 2 * time.Minute
	cfg.Reports.OutputDir = "reports"
	cfg.Mail.Port = 587
	cfg.Kafka.TopicCompleted = "call-reports.completed"
	cfg.Kafka.TopicFailed = "call-reports.failed"
	cfg.Worker.Concurrency = 2
	cfg.Worker.QueueSize = 64
	return cfg
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)

	c.Reports.OutputDir = getEnv("REPORTS_DIR", c.Reports.OutputDir)

	c.Mail.Enabled = getEnvBool("MAIL_ENABLED", c.Mail.Enabled)
	c.Mail.Host = getEnv("SMTP_HOST", c.Mail.Host)
	c.Mail.Port = getEnvInt("SMTP_PORT", c.Mail.Port)
	c.Mail.Username = getEnv("SMTP_USERNAME", c.Mail.Username)
	c.Mail.Password = getEnv("SMTP_PASSWORD", c.Mail.Password)
	c.Mail.From = getEnv("SMTP_FROM", c.Mail.From)
	c.Mail.Recipient = getEnv("EMAIL_RECIPIENT", c.Mail.Recipient)
	if c.Mail.From == "" {
		c.Mail.From = c.Mail.Username
	}

	c.Minio.Enabled = getEnvBool("MINIO_ENABLED", c.Minio.Enabled)
	c.Minio.Endpoint = getEnv("MINIO_ENDPOINT", c.Minio.Endpoint)
	c.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Minio.AccessKey)
	c.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", c.Minio.SecretKey)
	c.Minio.BucketName = getEnv("MINIO_BUCKET", c.Minio.BucketName)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)

	c.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", c.Kafka.Enabled)
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		c.Kafka.Brokers = splitList(v)
	}

	c.Worker.Concurrency = getEnvInt("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.QueueSize = getEnvInt("WORKER_QUEUE_SIZE", c.Worker.QueueSize)
}

// Validate rejects an enabled section that misses its required fields.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Reports.OutputDir == "" {
		errs = append(errs, errors.New("reports.outputDir is required"))
	}
	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.Recipient == "" || c.Mail.From == "") {
		errs = append(errs, errors.New("mail enabled: SMTP_HOST, SMTP_FROM and EMAIL_RECIPIENT are required"))
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		errs = append(errs, errors.New("minio enabled: endpoint and bucketName are required"))
	}
	switch c.Database.Driver {
	case "":
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("database: host and name are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q not supported (mysql, postgres)", c.Database.Driver))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka enabled: brokers are required"))
	}
	if c.Worker.Concurrency <= 0 || c.Worker.QueueSize <= 0 {
		errs = append(errs, errors.New("worker.concurrency and worker.queueSize must be positive"))
	}
	if _, err := c.BuildRubric(); err != nil {
		errs = append(errs, fmt.Errorf("rubric: %w", err))
	}
	return errors.Join(errs...)
}

// BuildRubric applies the overrides on top of the default rubric.
func (c *Config) BuildRubric() (analysis.Rubric, error) {
	base := analysis.DefaultRubric()
	if c.Rubric.Version == "" && len(c.Rubric.Categories) == 0 {
		return base, nil
	}

	cats := base.Categories()
	index := make(map[analysis.CategoryKey]int, len(cats))
	for i, cat := range cats {
		index[cat.Key] = i
	}
	for _, o := range c.Rubric.Categories {
		i, ok := index[analysis.CategoryKey(o.Key)]
		if !ok {
			return analysis.Rubric{}, fmt.Errorf("unknown category %q", o.Key)
		}
		if o.Name != "" {
			cats[i].Name = o.Name
		}
		if o.Weight != 0 {
			cats[i].Weight = o.Weight
		}
		if o.Description != "" {
			cats[i].Description = o.Description
		}
	}

	version := c.Rubric.Version
	if version == "" {
		version = base.Version() + "-custom"
	}
	return analysis.NewRubric(version, cats)
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	ssl := c.Database.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		ssl,
	)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
