package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// Store persists generated documents under slash-separated keys such as
// contracts/<id>/draft.pdf.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

var (
	ErrNotFound   = errors.New("object_not_found")
	ErrInvalidKey = errors.New("invalid_object_key")
)

// cleanKey rejects absolute keys and keys escaping the store root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
