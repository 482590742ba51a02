// Package core defines the snapshot blob store abstraction shared by the
// filesystem, in-memory and S3 backends.
package core

import (
	"context"
	"errors"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a byte-oriented blob abstraction sized for seed-run snapshots.
// Put overwrites an existing key; snapshots are rewritten per run.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (Info, error)
	// Get retrieves blob contents and metadata. Missing keys yield ErrNotFound.
	Get(ctx context.Context, key string) (Info, []byte, error)
	// List returns blobs whose key has the provided prefix, ordered by key ascending.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Delete removes a blob. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// Driver returns the configured backend driver string.
	Driver() Driver
}

// ErrNotFound is returned when a key has no stored blob.
var ErrNotFound = errors.New("blob: not found")
