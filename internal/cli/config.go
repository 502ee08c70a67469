package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the environment-derived half of an invocation: where the
// tracking server lives and how to reach its artifact bucket. Everything
// here is optional; an empty TrackingURI selects the file-backed store.
type Config struct {
	TrackingURI     string
	S3Endpoint      string
	AccessKeyID     string
	SecretAccessKey string
	Experiment      string
}

// ConfigError marks a configuration problem so the boundary can map it to
// ExitConfigError.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// LoadConfig reads configuration from the environment, optionally seeded by
// a .env file in workDir. Variables use the DEMANDCAST_ prefix:
//
//	DEMANDCAST_TRACKING_URI
//	DEMANDCAST_S3_ENDPOINT
//	DEMANDCAST_ACCESS_KEY_ID
//	DEMANDCAST_SECRET_ACCESS_KEY
//	DEMANDCAST_EXPERIMENT
//
// A missing .env file is not an error; a malformed one is.
func LoadConfig(workDir string) (Config, error) {
	envPath := filepath.Join(workDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, &ConfigError{Message: fmt.Sprintf("load %s: %v", envPath, err), Cause: err}
		}
	}

	v := viper.New()
	v.SetEnvPrefix("DEMANDCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"tracking_uri", "s3_endpoint", "access_key_id", "secret_access_key", "experiment"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, &ConfigError{Message: fmt.Sprintf("bind %s: %v", key, err), Cause: err}
		}
	}

	cfg := Config{
		TrackingURI:     strings.TrimSpace(v.GetString("tracking_uri")),
		S3Endpoint:      strings.TrimSpace(v.GetString("s3_endpoint")),
		AccessKeyID:     strings.TrimSpace(v.GetString("access_key_id")),
		SecretAccessKey: strings.TrimSpace(v.GetString("secret_access_key")),
		Experiment:      strings.TrimSpace(v.GetString("experiment")),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey == "" {
		return Config{}, &ConfigError{Message: "DEMANDCAST_ACCESS_KEY_ID is set but DEMANDCAST_SECRET_ACCESS_KEY is not"}
	}
	return cfg, nil
}
