// Package storage persists generated and uploaded artifacts (QR images and
// ticket designs) and hands back the reference stored in the database.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// Artifact key prefixes. Keys are slash separated and relative.
const (
	UploadsPrefix = "uploads"
	TicketsPrefix = "tickets"
)

// ErrInvalidKey is returned for keys that are empty or escape the store root.
var ErrInvalidKey = errors.New("storage: invalid artifact key")

// Store writes and removes artifacts. Put returns the reference recorded in
// the database (a public path or URL); Delete accepts that same reference.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// cleanKey normalises key and rejects anything that is absolute or climbs out
// of the root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	c := path.Clean(key)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidKey
	}
	return c, nil
}

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "_")

// SanitizeFilename turns a client supplied file name into a single safe path
// segment.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeName.Replace(name)
	if name == "" || name == "." || name == "_" {
		return "file"
	}
	return name
}
