// Package config loads client settings from a YAML file with environment
// variable overrides. The file is optional: a missing file yields an empty
// configuration that the environment can fill in completely.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v2"

	"github.com/kazeochan/tempbin/tbtypes"
)

// Config mirrors the on-disk YAML layout.
type Config struct {
	AccountID       string `yaml:"account_id"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	PublicURL       string `yaml:"public_url"`
	Endpoint        string `yaml:"endpoint"`

	Upload UploadConfig `yaml:"upload"`
}

// UploadConfig tunes the transfer strategy. Zero values fall back to the
// defaults in tbtypes.
type UploadConfig struct {
	MultipartThresholdMB int64 `yaml:"multipart_threshold_mb"`
	PartSizeMB           int64 `yaml:"part_size_mb"`
	Concurrency          int   `yaml:"concurrency"`
}

// DefaultPath returns the conventional config file location,
// $XDG_CONFIG_HOME/tempbin/config.yaml or ~/.config/tempbin/config.yaml.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tempbin", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "tempbin", "config.yaml")
}

// Load reads the config file at path, then applies TEMPBIN_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Environment-only configuration.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.AccountID, "TEMPBIN_ACCOUNT_ID")
	setString(&c.AccessKeyID, "TEMPBIN_ACCESS_KEY_ID")
	setString(&c.SecretAccessKey, "TEMPBIN_SECRET_ACCESS_KEY")
	setString(&c.Bucket, "TEMPBIN_BUCKET")
	setString(&c.PublicURL, "TEMPBIN_PUBLIC_URL")
	setString(&c.Endpoint, "TEMPBIN_ENDPOINT")

	if v := os.Getenv("TEMPBIN_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Upload.Concurrency = n
		}
	}
	if v := os.Getenv("TEMPBIN_PART_SIZE_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Upload.PartSizeMB = n
		}
	}
}

// Credentials converts the loaded settings into client credentials.
func (c *Config) Credentials() tbtypes.Credentials {
	return tbtypes.Credentials{
		AccountID:       c.AccountID,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		Bucket:          c.Bucket,
		PublicURL:       c.PublicURL,
	}
}

// Policy converts the upload section into an upload policy, filling unset
// fields with the defaults.
func (c *Config) Policy() tbtypes.UploadPolicy {
	p := tbtypes.DefaultUploadPolicy()
	if c.Upload.MultipartThresholdMB > 0 {
		p.MultipartThreshold = c.Upload.MultipartThresholdMB << 20
	}
	if c.Upload.PartSizeMB > 0 {
		p.PartSize = c.Upload.PartSizeMB << 20
	}
	if c.Upload.Concurrency > 0 {
		p.Concurrency = c.Upload.Concurrency
	}
	return p
}
