package db

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Driver identifies the SQL backend behind a database URL.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// slowQueryThreshold はこれを超えたクエリを警告として記録します。
const slowQueryThreshold = 200 * time.Millisecond

// retryInterval is the pause between connection attempts.
var retryInterval = 3 * time.Second

// Config describes how to reach the relational store.
type Config struct {
	Driver  Driver
	DSN     string
	Timeout time.Duration
}

// ParseURL resolves a database URL into a Config.
// postgres:// and postgresql:// select PostgreSQL; anything else is a SQLite path,
// with an optional "sqlite:" prefix.
func ParseURL(url string, timeout time.Duration) Config {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return Config{Driver: DriverPostgres, DSN: url, Timeout: timeout}
	case strings.HasPrefix(lower, "sqlite://"):
		return Config{Driver: DriverSQLite, DSN: url[len("sqlite://"):], Timeout: timeout}
	case strings.HasPrefix(lower, "sqlite:"):
		return Config{Driver: DriverSQLite, DSN: url[len("sqlite:"):], Timeout: timeout}
	default:
		return Config{Driver: DriverSQLite, DSN: url, Timeout: timeout}
	}
}

// BuildDSN returns a log-safe form of the DSN with any password masked.
func BuildDSN(cfg Config) string {
	if cfg.Driver != DriverPostgres {
		return cfg.DSN
	}
	pc, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return "postgres://<invalid>"
	}
	return fmt.Sprintf("postgres://%s:***@%s:%d/%s", pc.User, pc.Host, pc.Port, pc.Database)
}

// Opener opens a connection for a DSN. gorm.Open pings the pool, so a nil error means reachable.
type Opener func(dsn string) (*gorm.DB, error)

// ConnectWithRetry calls opener until it succeeds or timeout elapses.
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("db connect failed, retrying", "error", err)
		time.Sleep(min(retryInterval, remaining))
	}
}

// OpenDB connects to the configured backend, retrying until cfg.Timeout.
func OpenDB(cfg Config) (*gorm.DB, error) {
	var opener Opener
	switch cfg.Driver {
	case DriverPostgres:
		opener = postgresOpener(cfg.Timeout)
	case DriverSQLite:
		opener = openSQLite
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := ConnectWithRetry(cfg.DSN, cfg.Timeout, opener)
	if err != nil {
		return nil, err
	}
	slog.Info("database connected", "driver", cfg.Driver, "dsn", BuildDSN(cfg))
	return db, nil
}

func gormConfig() *gorm.Config {
	// 一意制約違反を gorm.ErrDuplicatedKey として受け取る
	return &gorm.Config{
		TranslateError: true,
		Logger:         NewGormLogger(slog.Default().Handler()),
	}
}

// NewGormLogger routes GORM's own output through h at warn level.
// Record-not-found is an expected outcome of lookups and is not logged.
func NewGormLogger(h slog.Handler) gormlogger.Interface {
	return gormlogger.New(slog.NewLogLogger(h, slog.LevelWarn), gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func postgresOpener(connectTimeout time.Duration) Opener {
	return func(dsn string) (*gorm.DB, error) {
		pc, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse postgres url: %w", err)
		}
		if connectTimeout > 0 {
			pc.ConnectTimeout = connectTimeout
		}
		sqlDB := stdlib.OpenDB(*pc)

		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig())
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	}
}

func openSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite は書き込みを直列化する。:memory: では接続ごとに別DBになるため1本に固定する
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables for the given models.
func Migrate(db *gorm.DB, models ...any) error {
	if len(models) == 0 {
		return errors.New("migrate: no models given")
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
