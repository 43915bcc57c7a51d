package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	DefaultAddr            = ":9000"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultWebDir          = "web"
	DefaultFilesDir        = "static/files"
	DefaultGalleryDir      = "static/gallery"
	DefaultMaxUserSpace    = "20GiB"
	DefaultDBPath          = "mycloud.db"
	DefaultCacheTTL        = 30 * time.Second
	DefaultSessionCookie   = "mycloud_session"
	DefaultSessionTTL      = 24 * time.Hour
	DefaultLogLevel        = "INFO"
	DefaultLogFormat       = "console"

	// InsecureDefaultSecret signs sessions when no secret is configured.
	InsecureDefaultSecret = "change-me-in-production"
)

func defaultValues() map[string]any {
	return map[string]any{
		"server.addr":             DefaultAddr,
		"server.shutdown_timeout": DefaultShutdownTimeout,
		"server.web_dir":          DefaultWebDir,
		"server.body_limit":       "",
		"storage.files_dir":       DefaultFilesDir,
		"storage.gallery_dir":     DefaultGalleryDir,
		"storage.max_user_space":  DefaultMaxUserSpace,
		"users.db_path":           DefaultDBPath,
		"users.seed_file":         "",
		"users.cache_ttl":         DefaultCacheTTL,
		"session.secret":          InsecureDefaultSecret,
		"session.cookie_name":     DefaultSessionCookie,
		"session.ttl":             DefaultSessionTTL,
		"session.secure":          false,
		"logging.level":           DefaultLogLevel,
		"logging.format":          DefaultLogFormat,
		"metrics.enabled":         false,
	}
}

// ApplyDefaults fills empty fields with defaults, normalizes the log level and
// parses MaxUserSpace into MaxUserSpaceBytes.
func ApplyDefaults(cfg *Config) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.WebDir == "" {
		cfg.Server.WebDir = DefaultWebDir
	}

	if cfg.Storage.FilesDir == "" {
		cfg.Storage.FilesDir = DefaultFilesDir
	}
	if cfg.Storage.GalleryDir == "" {
		cfg.Storage.GalleryDir = DefaultGalleryDir
	}
	if cfg.Storage.MaxUserSpace == "" {
		cfg.Storage.MaxUserSpace = DefaultMaxUserSpace
	}

	if cfg.Users.DBPath == "" {
		cfg.Users.DBPath = DefaultDBPath
	}

	if cfg.Session.Secret == "" {
		cfg.Session.Secret = InsecureDefaultSecret
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = DefaultSessionCookie
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = DefaultSessionTTL
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	maxBytes, err := parseSize(cfg.Storage.MaxUserSpace)
	if err != nil {
		return fmt.Errorf("storage.max_user_space: %w", err)
	}
	cfg.Storage.MaxUserSpaceBytes = maxBytes

	if cfg.Server.BodyLimit != "" {
		limit, err := parseSize(cfg.Server.BodyLimit)
		if err != nil {
			return fmt.Errorf("server.body_limit: %w", err)
		}
		cfg.Server.BodyLimitBytes = limit
	}

	return nil
}

func parseSize(value string) (int64, error) {
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, err
	}
	if size > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", value)
	}
	return int64(size), nil
}

// UsesInsecureSecret reports whether sessions are signed with the built-in secret.
func (c *Config) UsesInsecureSecret() bool {
	return c.Session.Secret == InsecureDefaultSecret
}
