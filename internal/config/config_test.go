package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresSecretKey(t *testing.T) {
	// Clear any existing env vars
	t.Setenv("SECRET_KEY", "")
	t.Setenv("CONFIG_PATH", "")

	_, err := Load("")
	require.Error(t, err, "expected an error when SECRET_KEY is missing")
	assert.EqualError(t, err, "security.secret_key is required (env: SECRET_KEY)")
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "")
	t.Setenv("WORK_DIR", "")
	t.Setenv("APP_PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)

	// Check defaults
	assert.Equal(t, "ocrplane", cfg.App.Title)
	assert.Equal(t, "0.0.0.0", cfg.App.Host)
	assert.Equal(t, 8015, cfg.App.Port)
	assert.Equal(t, 30*time.Minute, cfg.Security.TokenTTL)

	require.Len(t, cfg.Security.Users, 1)
	assert.Equal(t, "admin", cfg.Security.Users[0].Username)

	require.Len(t, cfg.Pipeline.Command, 3)
	assert.Equal(t, "python", cfg.Pipeline.Command[0])
	assert.Equal(t, "exec", cfg.Pipeline.Runtime)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.Timeout)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, 64, cfg.Pipeline.QueueSize)
	assert.True(t, cfg.Pipeline.Markdown, "markdown output should be on by default")
	assert.True(t, cfg.Pipeline.ExtractTables, "table extraction should be on by default")
	assert.True(t, cfg.Pipeline.ExtractFigures, "figure extraction should be on by default")

	assert.Equal(t, "./ocrplane_workdir", cfg.Upload.WorkDir)
	assert.EqualValues(t, 50, cfg.Upload.MaxFileSizeMB)
	assert.Len(t, cfg.Upload.AllowedExtensions, 4)
	assert.True(t, cfg.Upload.PDFPreflight, "PDF preflight should be on by default")

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9999")
	t.Setenv("WORK_DIR", "/tmp/ocr-work")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "45")
	t.Setenv("ADMIN_USERNAME", "ops")
	t.Setenv("ADMIN_PASSWORD", "hunter2")
	t.Setenv("PIPELINE_WORKERS", "5")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Security.SecretKey)
	assert.Equal(t, "127.0.0.1", cfg.App.Host)
	assert.Equal(t, 9999, cfg.App.Port)
	assert.Equal(t, "/tmp/ocr-work", cfg.Upload.WorkDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 45*time.Minute, cfg.Security.TokenTTL)

	require.Len(t, cfg.Security.Users, 1)
	assert.Equal(t, "ops", cfg.Security.Users[0].Username)
	assert.Equal(t, "hunter2", cfg.Security.Users[0].Password)

	assert.Equal(t, 5, cfg.Pipeline.Workers)
	assert.Equal(t, "otel-collector:4317", cfg.Observability.OTLPEndpoint)
}

func TestLoad_ConfigFile(t *testing.T) {
	// Create temp config file
	tmpFile, err := os.CreateTemp("", "ocrplane-test-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	configContent := `
app:
  port: 7777
security:
  secret_key: "from-config-file"
  token_ttl: 10m
  users:
    - username: alice
      password: wonderland
pipeline:
  runtime: exec
  workers: 3
upload:
  max_file_size_mb: 5
`
	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	// Clear env vars that would override
	t.Setenv("SECRET_KEY", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "")

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, "from-config-file", cfg.Security.SecretKey)
	assert.Equal(t, 7777, cfg.App.Port)
	assert.Equal(t, 10*time.Minute, cfg.Security.TokenTTL)

	require.Len(t, cfg.Security.Users, 1)
	assert.Equal(t, "alice", cfg.Security.Users[0].Username)

	assert.Equal(t, 3, cfg.Pipeline.Workers)
	assert.EqualValues(t, 5, cfg.Upload.MaxFileSizeMB)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	// Create temp config file
	tmpFile, err := os.CreateTemp("", "ocrplane-test-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	configContent := `
app:
  port: 7777
security:
  secret_key: "from-file"
`
	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	// Set env vars to override config file
	t.Setenv("SECRET_KEY", "from-env")
	t.Setenv("APP_PORT", "8888")

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	// Env should override config file
	assert.Equal(t, "from-env", cfg.Security.SecretKey)
	assert.Equal(t, 8888, cfg.App.Port)
}

func TestLoad_InvalidRuntime(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PIPELINE_RUNTIME", "firecracker")

	_, err := Load("")
	assert.Error(t, err, "expected an error for invalid runtime")
}

func TestLoad_DockerRuntimeRequiresImage(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PIPELINE_RUNTIME", "docker")
	t.Setenv("PIPELINE_DOCKER_IMAGE", "")

	_, err := Load("")
	assert.Error(t, err, "expected an error when docker runtime has no image")

	t.Setenv("PIPELINE_DOCKER_IMAGE", "olmocr:latest")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "olmocr:latest", cfg.Pipeline.DockerImage)
}

func TestLoad_InvalidTokenMinutes(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "soon")

	_, err := Load("")
	assert.Error(t, err, "expected an error for non-integer ACCESS_TOKEN_EXPIRE_MINUTES")
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	_, err := Load("/nonexistent/path/to/config.yaml")
	assert.Error(t, err, "expected an error for nonexistent config file")
}

func TestLoad_ExtensionsNormalized(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "ocrplane-test-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	configContent := `
security:
  secret_key: "s"
upload:
  allowed_extensions: [".PDF", ".Png"]
`
	_, err = tmpFile.WriteString(configContent)
	require.NoError(t, err)
	tmpFile.Close()

	t.Setenv("SECRET_KEY", "")

	cfg, err := Load(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, []string{".pdf", ".png"}, cfg.Upload.AllowedExtensions,
		"extensions should be lowercased")
}

func TestMaxFileSizeBytes(t *testing.T) {
	u := UploadConfig{MaxFileSizeMB: 2}
	assert.EqualValues(t, 2*1024*1024, u.MaxFileSizeBytes())
}

func TestAddr(t *testing.T) {
	cfg := &Config{App: AppConfig{Host: "10.0.0.1", Port: 9000}}
	assert.Equal(t, "10.0.0.1:9000", cfg.Addr())
}
