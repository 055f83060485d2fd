package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"quickbid/internal/config"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// zapWriter routes gorm's printf logging into zap.
type zapWriter struct {
	log *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.log.Warnf(format, args...)
}

func newGormLogger(log *zap.Logger, slow time.Duration) gormlogger.Interface {
	if log == nil {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return gormlogger.New(zapWriter{log: log.Named("gorm").Sugar()}, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open connects to postgres. Slow queries and driver errors go to log.
func Open(cfg config.DBConfig, log *zap.Logger) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db: dsn is required")
	}
	gcfg := &gorm.Config{
		Logger:  newGormLogger(log, cfg.SlowQueryThreshold),
		NowFunc: NowUTC,
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN), gcfg)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(ctx context.Context, db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.SQL.PingContext(ctx)
}

// SetTimezone applies to one pooled session only. Put the zone in the DSN
// for the whole pool.
func SetTimezone(db *DB, tz string) error {
	if tz == "" {
		return nil
	}
	return db.Gorm.Exec("SELECT set_config('TimeZone', ?, false)", tz).Error
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
