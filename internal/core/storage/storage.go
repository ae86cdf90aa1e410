// Package storage is where scene documents are kept. A key is a slash
// separated relative path such as "levels/test.scene.yaml".
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverSQLite     Driver = "sqlite"
	DriverS3         Driver = "s3"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidKey    = errors.New("invalid key")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Store reads and writes whole documents. Write replaces any previous
// document under the key and never leaves a partial one behind.
type Store interface {
	Driver() Driver
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// List returns the sorted keys starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// CleanKey normalizes key and rejects keys that are empty, absolute or
// escape the store root.
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), `\`, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q leaves the root", ErrInvalidKey, key)
		}
	}

	clean := path.Clean(key)
	if clean == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}

// NotFound wraps ErrNotFound with the key.
func NotFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
