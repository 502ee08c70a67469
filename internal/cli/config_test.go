package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_ReadsPrefixedEnv(t *testing.T) {
	t.Setenv("DEMANDCAST_TRACKING_URI", "http://tracker:5000")
	t.Setenv("DEMANDCAST_EXPERIMENT", "bike-demand")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TrackingURI != "http://tracker:5000" {
		t.Errorf("tracking uri = %q", cfg.TrackingURI)
	}
	if cfg.Experiment != "bike-demand" {
		t.Errorf("experiment = %q", cfg.Experiment)
	}
}

func TestLoadConfig_DotEnvSeedsEnvironment(t *testing.T) {
	dir := t.TempDir()
	env := "DEMANDCAST_S3_ENDPOINT=http://minio:9000\n" +
		"DEMANDCAST_ACCESS_KEY_ID=key\n" +
		"DEMANDCAST_SECRET_ACCESS_KEY=secret\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("DEMANDCAST_S3_ENDPOINT", "")
	os.Unsetenv("DEMANDCAST_S3_ENDPOINT")
	t.Setenv("DEMANDCAST_ACCESS_KEY_ID", "")
	os.Unsetenv("DEMANDCAST_ACCESS_KEY_ID")
	t.Setenv("DEMANDCAST_SECRET_ACCESS_KEY", "")
	os.Unsetenv("DEMANDCAST_SECRET_ACCESS_KEY")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.S3Endpoint != "http://minio:9000" {
		t.Errorf("s3 endpoint = %q", cfg.S3Endpoint)
	}
	if cfg.AccessKeyID != "key" || cfg.SecretAccessKey != "secret" {
		t.Errorf("credentials = %q/%q", cfg.AccessKeyID, cfg.SecretAccessKey)
	}
}

func TestLoadConfig_MissingDotEnvIsFine(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err != nil {
		t.Fatalf("LoadConfig without .env: %v", err)
	}
}

func TestLoadConfig_KeyWithoutSecretRejected(t *testing.T) {
	t.Setenv("DEMANDCAST_ACCESS_KEY_ID", "key")
	t.Setenv("DEMANDCAST_SECRET_ACCESS_KEY", "")

	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatal("expected error for key without secret, got nil")
	}
}
