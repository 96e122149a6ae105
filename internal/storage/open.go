package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options selects and configures a backend
type Options struct {
	Backend      string
	Dir          string
	RedisAddress string
	RedisPrefix  string
}

// Open creates the backend named in opts
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (Storage, error) {
	switch opts.Backend {
	case BackendFile, "":
		return OpenFile(opts.Dir, logger)
	case BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddress, opts.RedisPrefix, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q, must be one of: file, memory, redis", opts.Backend)
	}
}
