package db

import (
	"time"

	"github.com/smallbiznis/royalty/internal/config"
)

// Config holds connection pool settings for the primary store.
type Config struct {
	Type            string
	Name            string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Instrument      bool
	LogLevel        string
	SlowQuery       time.Duration
}

func configFrom(cfg config.Config) Config {
	return Config{
		Type:            cfg.DBType,
		Name:            cfg.DBName,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.DBConnMaxIdleTime) * time.Second,
		Instrument:      cfg.DBType != "sqlite",
		LogLevel:        cfg.DBLogLevel,
		SlowQuery:       time.Duration(cfg.DBSlowQueryMillis) * time.Millisecond,
	}
}
