// Package blob stores uploaded binaries under flat keys such as
// "{id}-{name}" or "additional/{id}-{name}".
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

// AdditionalPrefix namespaces additional case files.
const AdditionalPrefix = "additional/"

type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^\w.\-]+`)

// SanitizeName replaces every run of characters outside [A-Za-z0-9_.-]
// with a single underscore.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	cleaned := unsafeChars.ReplaceAllString(name, "_")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// ReadAll opens key and reads it fully.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s failed: %w", key, err)
	}
	return data, nil
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "" {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}
