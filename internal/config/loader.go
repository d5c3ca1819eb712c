package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. SPLITGO_MIN_SAMPLES.
	EnvPrefix = "SPLITGO"
	// FileName is the config file looked up in the working directory.
	FileName = "splitgo"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("dest", func(fl validator.FieldLevel) bool {
		_, err := ParseDestination(fl.Field().String())
		return err == nil
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Config)
		if c.Valid+c.Test >= 1 {
			sl.ReportError(c.Test, "Test", "test", "ratio_sum", "")
		}
	}, Config{})
	return v
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("src", "")
	v.SetDefault("out", "")
	v.SetDefault("dest", "")
	v.SetDefault("valid", 0.2)
	v.SetDefault("test", 0.0)
	v.SetDefault("min-samples", 10)
	v.SetDefault("seed", 1)
	v.SetDefault("dump", 0)
	v.SetDefault("strict", false)
	v.SetDefault("workers", 0)
	v.SetDefault("io-limit", 0)
	v.SetDefault("overwrite", false)
	v.SetDefault("dry-run", false)
	v.SetDefault("archive", "")
	v.SetDefault("archive-codec", "zstd")
	v.SetDefault("metrics-file", "")

	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")

	v.SetDefault("minio-endpoint", "localhost:9000")
	v.SetDefault("minio-access-key", "")
	v.SetDefault("minio-secret-key", "")
	v.SetDefault("minio-use-ssl", false)
	v.SetDefault("minio-region", "")

	v.SetDefault("s3-region", "")
	v.SetDefault("s3-endpoint", "")
}

// Load reads configuration into v and decodes it.
//
// Precedence, highest first: flags bound to v, SPLITGO_* environment
// variables, the config file, defaults. If file is empty, splitgo.yaml is
// looked up in the working directory and ignored when absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidationErrors lists every invalid field.
type ValidationErrors []string

func (e ValidationErrors) Error() string {
	return "config: invalid " + strings.Join(e, "; ")
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s: %s", fe.Field(), message(fe)))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "dest":
		return "must be s3://bucket[/prefix] or minio://bucket[/prefix]"
	case "excluded_with":
		return "cannot be combined with dest"
	case "ratio_sum":
		return "valid + test must be less than 1"
	default:
		return "failed " + fe.Tag()
	}
}
