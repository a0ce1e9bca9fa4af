package storage

import (
	"errors"
	"io"
)

// ErrInvalidKey is returned for empty, absolute or parent-escaping keys.
var ErrInvalidKey = errors.New("invalid blob key")

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	SignedURL(key string) (string, error) // URL a client can fetch the blob from
}
