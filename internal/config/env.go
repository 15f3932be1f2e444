package config

import (
	"fmt"
	"os"
	"strconv"
)

// ApplyEnv overrides cfg from environment variables. Callers load .env files
// (godotenv) before calling it.
func ApplyEnv(cfg *Config) error {
	setString(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Admin.Password, "ADMIN_PASSWORD")
	setString(&cfg.Mirror.Endpoint, "MIRROR_ENDPOINT")
	setString(&cfg.Mirror.Bucket, "GCS_BUCKET_NAME")
	setString(&cfg.Mirror.Bucket, "MIRROR_BUCKET")
	setString(&cfg.Mirror.AccessKey, "MIRROR_ACCESS_KEY")
	setString(&cfg.Mirror.SecretKey, "MIRROR_SECRET_KEY")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	if err := setBool(&cfg.Mirror.Enabled, "MIRROR_ENABLED"); err != nil {
		return err
	}
	return setBool(&cfg.Debug, "DEBUG")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*dst = b
	return nil
}
