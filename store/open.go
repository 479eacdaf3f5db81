package store

import (
	"context"
	"fmt"
	"log"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendR2       = "r2"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string
	RedisPrefix string
	R2          R2Options
}

// Open builds the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (RecordStore, error) {
	log.Printf("[Store] opening %s backend", opts.Backend)

	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite, "":
		return OpenSQLite(opts.SQLitePath)
	case BackendPostgres:
		return OpenPostgres(opts.DatabaseURL)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisURL, opts.RedisPrefix)
	case BackendR2:
		return OpenR2(ctx, opts.R2)
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}
