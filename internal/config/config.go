// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address" validate:"required,hostname_port"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn" validate:"required"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// UploadDir is the root of the filesystem blob store.
	UploadDir string `json:"upload_dir" validate:"required_without=MinioEndpoint"`
	// MaxUploadMB caps a single upload. Zero disables the cap.
	MaxUploadMB int64 `json:"max_upload_mb" validate:"gte=0"`

	// SessionTTL of zero keeps sessions valid until logout.
	SessionTTL      time.Duration `json:"session_ttl" validate:"gte=0"`
	CleanerInterval time.Duration `json:"cleaner_interval" validate:"gt=0"`
	// CleanerRetention is how long expired and revoked sessions are kept.
	CleanerRetention time.Duration `json:"cleaner_retention" validate:"gte=0"`

	// RevokeSharesOnDelete revokes a file's share links when it is deleted.
	RevokeSharesOnDelete bool `json:"revoke_shares_on_delete"`

	LogLevel string `json:"log_level" validate:"oneof=debug info warn error"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" validate:"required_with=TLSKey"`
	TLSKey  string `json:"tls_key" validate:"required_with=TLSCert"`

	// RedisAddr switches the session registry to Redis when set.
	RedisAddr     string `json:"redis_addr" validate:"omitempty,hostname_port"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db" validate:"gte=0"`

	// MinioEndpoint switches the blob store to S3-compatible storage when set.
	MinioEndpoint  string `json:"minio_endpoint"`
	MinioAccessKey string `json:"minio_access_key" validate:"required_with=MinioEndpoint"`
	MinioSecretKey string `json:"minio_secret_key" validate:"required_with=MinioEndpoint"`
	MinioBucket    string `json:"minio_bucket" validate:"required_with=MinioEndpoint"`
	MinioUseSSL    bool   `json:"minio_use_ssl"`
}

// UnmarshalJSON accepts durations as Go duration strings ("24h").
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	aux := struct {
		*plain
		SessionTTL       *string `json:"session_ttl"`
		CleanerInterval  *string `json:"cleaner_interval"`
		CleanerRetention *string `json:"cleaner_retention"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	for _, d := range []struct {
		raw *string
		dst *time.Duration
	}{
		{aux.SessionTTL, &o.SessionTTL},
		{aux.CleanerInterval, &o.CleanerInterval},
		{aux.CleanerRetention, &o.CleanerRetention},
	} {
		if d.raw == nil {
			continue
		}
		v, err := time.ParseDuration(*d.raw)
		if err != nil {
			return err
		}
		*d.dst = v
	}
	return nil
}

// Parse parses the command-line flags, the config file and environment
// variables, in that order of increasing precedence.
func Parse() (*Options, error) {
	return parse(os.Args[1:], os.Getenv)
}

func parse(args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}

	set := flag.NewFlagSet("gophvault", flag.ContinueOnError)
	set.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	set.StringVar(&options.DatabaseDSN, "d", "", "db address")
	set.StringVar(&options.Config, "config", "config.json", "path to config file")
	set.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	set.StringVar(&options.UploadDir, "u", "uploads", "directory for uploaded content")
	set.Int64Var(&options.MaxUploadMB, "max-upload-mb", 100, "maximum upload size in MiB, 0 for unlimited")
	set.DurationVar(&options.SessionTTL, "session-ttl", 0, "session lifetime, 0 for no expiry")
	set.DurationVar(&options.CleanerInterval, "cleaner-interval", time.Hour, "how often stale sessions are purged")
	set.DurationVar(&options.CleanerRetention, "cleaner-retention", 30*24*time.Hour, "how long stale sessions are kept")
	set.BoolVar(&options.RevokeSharesOnDelete, "revoke-shares-on-delete", false, "revoke share links when their file is deleted")
	set.StringVar(&options.LogLevel, "log-level", "info", "log level")
	set.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	set.StringVar(&options.TLSKey, "tls-key", "", "TLS private key file")
	set.StringVar(&options.RedisAddr, "redis", "", "redis address for sessions")
	set.StringVar(&options.MinioEndpoint, "minio", "", "S3-compatible endpoint for content")
	if err := set.Parse(args); err != nil {
		return nil, err
	}

	// Override flags with environment variables if set
	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		data, err := os.ReadFile(options.Config)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error while reading config file: %w", err)
		default:
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}

	options.LogLevel = strings.ToLower(strings.TrimSpace(options.LogLevel))
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(options); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return options, nil
}

func applyEnv(o *Options, getenv func(string) string) error {
	strs := map[string]*string{
		"SERVER_ADDRESS":   &o.Port,
		"DATABASE_DSN":     &o.DatabaseDSN,
		"UPLOAD_DIR":       &o.UploadDir,
		"LOG_LEVEL":        &o.LogLevel,
		"TLS_CERT":         &o.TLSCert,
		"TLS_KEY":          &o.TLSKey,
		"REDIS_ADDR":       &o.RedisAddr,
		"REDIS_PASSWORD":   &o.RedisPassword,
		"MINIO_ENDPOINT":   &o.MinioEndpoint,
		"MINIO_ACCESS_KEY": &o.MinioAccessKey,
		"MINIO_SECRET_KEY": &o.MinioSecretKey,
		"MINIO_BUCKET":     &o.MinioBucket,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SESSION_TTL":       &o.SessionTTL,
		"CLEANER_INTERVAL":  &o.CleanerInterval,
		"CLEANER_RETENTION": &o.CleanerRetention,
	}
	for name, dst := range durations {
		if v := getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}

	bools := map[string]*bool{
		"REVOKE_SHARES_ON_DELETE": &o.RevokeSharesOnDelete,
		"MINIO_USE_SSL":           &o.MinioUseSSL,
	}
	for name, dst := range bools {
		if v := getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
	}

	if v := getenv("MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_MB: %w", err)
		}
		o.MaxUploadMB = n
	}
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		o.RedisDB = n
	}
	return nil
}
