// Package config handles layered configuration: defaults, YAML file, environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Title string `mapstructure:"title"`
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

// UserCredential is a single configured user. Password is either a bcrypt
// hash or a legacy plaintext value.
type UserCredential struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SecurityConfig holds token signing and user credentials.
type SecurityConfig struct {
	SecretKey string           `mapstructure:"secret_key"`
	TokenTTL  time.Duration    `mapstructure:"token_ttl"`
	Users     []UserCredential `mapstructure:"users"`
}

// PipelineConfig describes how the OCR pipeline subprocess is run.
type PipelineConfig struct {
	Command        []string      `mapstructure:"command"`
	Runtime        string        `mapstructure:"runtime"`
	DockerImage    string        `mapstructure:"docker_image"`
	Markdown       bool          `mapstructure:"markdown"`
	ExtractTables  bool          `mapstructure:"extract_tables"`
	ExtractFigures bool          `mapstructure:"extract_figures"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
}

// UploadConfig constrains what documents are accepted and where they land.
type UploadConfig struct {
	WorkDir           string   `mapstructure:"work_dir"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	MaxFileSizeMB     int64    `mapstructure:"max_file_size_mb"`
	PDFPreflight      bool     `mapstructure:"pdf_preflight"`
}

// LoggingConfig controls log level and optional file output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ObservabilityConfig holds tracing settings. Tracing is off unless
// an OTLP endpoint is configured.
type ObservabilityConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// Config holds all configuration values for the application.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Security      SecurityConfig      `mapstructure:"security"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (u UploadConfig) MaxFileSizeBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// Load reads configuration with precedence: defaults < config file < env.
// A .env file in the working directory is loaded into the environment first.
// If path is empty, CONFIG_PATH is consulted, then ocrplane.yaml in the
// working directory; a missing discovered file falls back to defaults, but
// an explicitly named file that cannot be read is an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("ocrplane")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := applyLegacyEnv(&cfg); err != nil {
		return nil, err
	}

	normalize(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.title", "ocrplane")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8015)
	v.SetDefault("app.debug", false)

	v.SetDefault("security.token_ttl", 30*time.Minute)
	v.SetDefault("security.users", []map[string]interface{}{
		{"username": "admin", "password": "secret"},
	})

	v.SetDefault("pipeline.command", []string{"python", "-m", "olmocr.pipeline"})
	v.SetDefault("pipeline.runtime", "exec")
	v.SetDefault("pipeline.markdown", true)
	v.SetDefault("pipeline.extract_tables", true)
	v.SetDefault("pipeline.extract_figures", true)
	v.SetDefault("pipeline.timeout", 30*time.Minute)
	v.SetDefault("pipeline.workers", 2)
	v.SetDefault("pipeline.queue_size", 64)

	v.SetDefault("upload.work_dir", "./ocrplane_workdir")
	v.SetDefault("upload.allowed_extensions", []string{".pdf", ".png", ".jpg", ".jpeg"})
	v.SetDefault("upload.max_file_size_mb", 50)
	v.SetDefault("upload.pdf_preflight", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("observability.otlp_endpoint", "")
}

// bindEnv maps the environment variable names used by existing deployments.
func bindEnv(v *viper.Viper) {
	v.BindEnv("app.host", "APP_HOST")
	v.BindEnv("app.port", "APP_PORT")
	v.BindEnv("app.debug", "DEBUG")
	v.BindEnv("security.secret_key", "SECRET_KEY")
	v.BindEnv("pipeline.runtime", "PIPELINE_RUNTIME")
	v.BindEnv("pipeline.docker_image", "PIPELINE_DOCKER_IMAGE")
	v.BindEnv("pipeline.workers", "PIPELINE_WORKERS")
	v.BindEnv("upload.work_dir", "WORK_DIR")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.file", "LOG_FILE")
	v.BindEnv("observability.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// applyLegacyEnv handles env vars that do not map one-to-one onto keys:
// the token TTL expressed in minutes, and the admin credential pair that
// replaces the first configured user.
func applyLegacyEnv(cfg *Config) error {
	if raw := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
		}
		cfg.Security.TokenTTL = time.Duration(minutes) * time.Minute
	}

	adminUser := os.Getenv("ADMIN_USERNAME")
	adminPass := os.Getenv("ADMIN_PASSWORD")
	if adminUser != "" && adminPass != "" {
		cred := UserCredential{Username: adminUser, Password: adminPass}
		if len(cfg.Security.Users) > 0 {
			cfg.Security.Users[0] = cred
		} else {
			cfg.Security.Users = append(cfg.Security.Users, cred)
		}
	}

	return nil
}

func normalize(cfg *Config) {
	for i, ext := range cfg.Upload.AllowedExtensions {
		cfg.Upload.AllowedExtensions[i] = strings.ToLower(strings.TrimSpace(ext))
	}
	cfg.Pipeline.Runtime = strings.ToLower(strings.TrimSpace(cfg.Pipeline.Runtime))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
}

func (c *Config) validate() error {
	if c.Security.SecretKey == "" {
		return fmt.Errorf("security.secret_key is required (env: SECRET_KEY)")
	}
	if c.App.Port < 1 || c.App.Port > 65535 {
		return fmt.Errorf("app.port must be between 1 and 65535 (env: APP_PORT)")
	}
	if len(c.Security.Users) == 0 {
		return fmt.Errorf("security.users must not be empty (env: ADMIN_USERNAME, ADMIN_PASSWORD)")
	}
	for _, u := range c.Security.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("security.users entries require both username and password")
		}
	}
	if len(c.Pipeline.Command) == 0 {
		return fmt.Errorf("pipeline.command must not be empty")
	}
	switch c.Pipeline.Runtime {
	case "exec":
	case "docker":
		if c.Pipeline.DockerImage == "" {
			return fmt.Errorf("pipeline.docker_image is required when pipeline.runtime is docker (env: PIPELINE_DOCKER_IMAGE)")
		}
	default:
		return fmt.Errorf("pipeline.runtime must be one of: exec, docker (got %q)", c.Pipeline.Runtime)
	}
	if c.Pipeline.Timeout <= 0 {
		return fmt.Errorf("pipeline.timeout must be positive")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive (env: PIPELINE_WORKERS)")
	}
	if c.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("pipeline.queue_size must be positive")
	}
	if c.Upload.WorkDir == "" {
		return fmt.Errorf("upload.work_dir is required (env: WORK_DIR)")
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("upload.max_file_size_mb must be positive")
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("upload.allowed_extensions must not be empty")
	}
	for _, ext := range c.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("upload.allowed_extensions entries must start with a dot (got %q)", ext)
		}
	}
	return nil
}
