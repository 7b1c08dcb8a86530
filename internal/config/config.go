// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// 対応するデータベースドライバ。
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// 対応するお気に入りのハッシュ方式。
const (
	HashSHA256 = "sha256"
	HashFNV1a  = "fnv1a"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// Archive
	// ArchiveRoot はファイルシステムのディレクトリ、またはhttp(s)のベースURL。
	ArchiveRoot         string        `env:"ARCHIVE_ROOT" envDefault:"."`
	ArchivePrefix       string        `env:"ARCHIVE_PREFIX" envDefault:"data"`
	ArchiveExt          string        `env:"ARCHIVE_EXT" envDefault:"json"`
	ArchiveTimeout      time.Duration `env:"ARCHIVE_TIMEOUT" envDefault:"10s"`
	ArchiveMaxSize      int64         `env:"ARCHIVE_MAX_SIZE" envDefault:"5242880"`
	ArchiveAllowPrivate bool          `env:"ARCHIVE_ALLOW_PRIVATE" envDefault:"false"`

	// Database
	// DatabaseURL が空の場合、お気に入り機能は縮退モードで動作する。
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// Favourites
	FavouritesHash string `env:"FAVOURITES_HASH" envDefault:"sha256"`

	// Calendar
	// AppTimezone は「今日」を決めるタイムゾーン。IANA名またはLocal。
	AppTimezone string `env:"APP_TIMEZONE" envDefault:"Local"`

	// CORS
	// CORSAllowedOrigin が空の場合はCORSヘッダーを付与しない。
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// TrustProxy がtrueの場合はX-Forwarded-For / X-Real-IPからクライアントIPを決める。
	// リバースプロキシの背後で動かす場合のみ有効にする。
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`

	// Rate Limit (req/min/IP)
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitWrite   int `env:"RATE_LIMIT_WRITE" envDefault:"30"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	location *time.Location
}

// Load は環境変数からConfigを読み込み、値を検証する。
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var problems []string

	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	if c.DatabaseDriver != DriverPostgres && c.DatabaseDriver != DriverSQLite {
		problems = append(problems, fmt.Sprintf("DATABASE_DRIVER must be %s or %s: %q", DriverPostgres, DriverSQLite, c.DatabaseDriver))
	}

	c.FavouritesHash = strings.ToLower(strings.TrimSpace(c.FavouritesHash))
	if c.FavouritesHash != HashSHA256 && c.FavouritesHash != HashFNV1a {
		problems = append(problems, fmt.Sprintf("FAVOURITES_HASH must be %s or %s: %q", HashSHA256, HashFNV1a, c.FavouritesHash))
	}

	loc, err := time.LoadLocation(c.AppTimezone)
	if err != nil {
		problems = append(problems, fmt.Sprintf("APP_TIMEZONE is not a valid location: %q", c.AppTimezone))
	}
	c.location = loc

	if c.ArchiveRoot == "" {
		problems = append(problems, "ARCHIVE_ROOT must not be empty")
	}
	if c.ArchiveTimeout <= 0 {
		problems = append(problems, "ARCHIVE_TIMEOUT must be positive")
	}
	if c.ArchiveMaxSize <= 0 {
		problems = append(problems, "ARCHIVE_MAX_SIZE must be positive")
	}
	if c.RateLimitGeneral <= 0 || c.RateLimitWrite <= 0 {
		problems = append(problems, "RATE_LIMIT_GENERAL and RATE_LIMIT_WRITE must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location は「今日」を決めるタイムゾーンを返す。
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// FavouritesEnabled はお気に入りストアの接続先が設定されているかどうかを返す。
func (c *Config) FavouritesEnabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}
