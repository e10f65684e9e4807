// Package config loads the gclab YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gclabcore/pkg/domain"
)

// Config describes the gclab YAML configuration.
type Config struct {
	Storage struct {
		Driver      string `yaml:"driver"`
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"storage"`
	Blob struct {
		Driver    string `yaml:"driver"`
		FSRoot    string `yaml:"fs_root"`
		S3Bucket  string `yaml:"s3_bucket"`
		S3Region  string `yaml:"s3_region"`
		Endpoint  string `yaml:"s3_endpoint"`
		PathStyle bool   `yaml:"s3_path_style"`
	} `yaml:"blob"`
	QC struct {
		StopOnFail           *bool `yaml:"stop_on_fail"`
		WarnOn12s            *bool `yaml:"warn_on_1_2s"`
		RequireNBeforeStrict int   `yaml:"require_n_before_strict"`
	} `yaml:"qc"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	var cfg Config
	cfg.Storage.Driver = "sqlite"
	cfg.Blob.Driver = "fs"
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads and validates the configuration file. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	switch cfg.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return cfg, fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return cfg, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if cfg.Blob.Driver == "" {
		cfg.Blob.Driver = "fs"
	}
	switch cfg.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if cfg.Blob.S3Bucket == "" {
			return cfg, fmt.Errorf("blob.s3_bucket is required for the s3 driver")
		}
	default:
		return cfg, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
	if cfg.QC.RequireNBeforeStrict < 0 {
		return cfg, fmt.Errorf("qc.require_n_before_strict must be >= 0")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return cfg, nil
}

// Policy resolves the QC policy from the config, falling back to the
// documented defaults for unset fields.
func (c Config) Policy() domain.QCPolicy {
	policy := domain.DefaultQCPolicy()
	if c.QC.StopOnFail != nil {
		policy.StopOnFail = *c.QC.StopOnFail
	}
	if c.QC.WarnOn12s != nil {
		policy.WarnOn12s = *c.QC.WarnOn12s
	}
	policy.RequireNBeforeStrict = c.QC.RequireNBeforeStrict
	return policy
}

// ApplyEnv exports storage and blob settings as the environment variables the
// factory functions consume, without clobbering explicit overrides.
func (c Config) ApplyEnv() {
	setIfUnset("GCLAB_STORAGE_DRIVER", c.Storage.Driver)
	setIfUnset("GCLAB_SQLITE_PATH", c.Storage.SQLitePath)
	setIfUnset("GCLAB_POSTGRES_DSN", c.Storage.PostgresDSN)
	setIfUnset("GCLAB_BLOB_DRIVER", c.Blob.Driver)
	setIfUnset("GCLAB_BLOB_FS_ROOT", c.Blob.FSRoot)
	setIfUnset("GCLAB_BLOB_S3_BUCKET", c.Blob.S3Bucket)
	setIfUnset("GCLAB_BLOB_S3_REGION", c.Blob.S3Region)
	setIfUnset("GCLAB_BLOB_S3_ENDPOINT", c.Blob.Endpoint)
	if c.Blob.PathStyle {
		setIfUnset("GCLAB_BLOB_S3_PATH_STYLE", "true")
	}
}

func setIfUnset(key, value string) {
	if value == "" {
		return
	}
	if _, ok := os.LookupEnv(key); ok {
		return
	}
	_ = os.Setenv(key, value)
}
