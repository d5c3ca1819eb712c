// Package config loads the CLI configuration from flags, SPLITGO_*
// environment variables and an optional splitgo.yaml file.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Config holds all settings of a split run.
type Config struct {
	Source       string  `mapstructure:"src" validate:"required"`
	Out          string  `mapstructure:"out" validate:"excluded_with=Dest"`
	Dest         string  `mapstructure:"dest" validate:"omitempty,dest"`
	Valid        float64 `mapstructure:"valid" validate:"gt=0,lt=1"`
	Test         float64 `mapstructure:"test" validate:"gte=0,lt=1"`
	MinSamples   int     `mapstructure:"min-samples" validate:"gte=1"`
	Seed         uint64  `mapstructure:"seed"`
	Dump         int     `mapstructure:"dump" validate:"gte=0"`
	Strict       bool    `mapstructure:"strict"`
	Workers      int     `mapstructure:"workers" validate:"gte=0"`
	IOLimit      int64   `mapstructure:"io-limit" validate:"gte=0"`
	Overwrite    bool    `mapstructure:"overwrite"`
	DryRun       bool    `mapstructure:"dry-run"`
	Archive      string  `mapstructure:"archive"`
	ArchiveCodec string  `mapstructure:"archive-codec" validate:"oneof=zstd lz4 none"`
	MetricsFile  string  `mapstructure:"metrics-file"`

	Log   LogConfig   `mapstructure:",squash"`
	MinIO MinIOConfig `mapstructure:",squash"`
	S3    S3Config    `mapstructure:",squash"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"log-format" validate:"oneof=text json"`
}

// MinIOConfig holds the connection settings for minio:// destinations.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"minio-endpoint"`
	AccessKey string `mapstructure:"minio-access-key"`
	SecretKey string `mapstructure:"minio-secret-key"`
	UseSSL    bool   `mapstructure:"minio-use-ssl"`
	Region    string `mapstructure:"minio-region"`
}

// S3Config holds the settings for s3:// destinations. Credentials come from
// the default AWS chain.
type S3Config struct {
	Region   string `mapstructure:"s3-region"`
	Endpoint string `mapstructure:"s3-endpoint"`
}

// Destination is a parsed --dest URI.
type Destination struct {
	Scheme string
	Bucket string
	Prefix string
}

// ParseDestination parses s3://bucket/prefix and minio://bucket/prefix.
func ParseDestination(raw string) (Destination, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, fmt.Errorf("config: destination %q: %w", raw, err)
	}
	switch u.Scheme {
	case "s3", "minio":
	default:
		return Destination{}, fmt.Errorf("config: destination %q: scheme must be s3 or minio", raw)
	}
	if u.Host == "" {
		return Destination{}, fmt.Errorf("config: destination %q: missing bucket", raw)
	}
	return Destination{
		Scheme: u.Scheme,
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// Destination returns the parsed Dest. ok is false when Dest is empty.
func (c *Config) Destination() (d Destination, ok bool, err error) {
	if c.Dest == "" {
		return Destination{}, false, nil
	}
	d, err = ParseDestination(c.Dest)
	return d, err == nil, err
}
