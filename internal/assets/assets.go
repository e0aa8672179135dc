// internal/assets/assets.go
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no object exists under a key.
var ErrNotFound = errors.New("asset not found")

// ErrInvalidName is returned for file names that cannot be stored safely.
var ErrInvalidName = errors.New("invalid file name")

// FileInfo describes a stored object.
type FileInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// BlobStore holds uploaded campaign files. Contents are opaque to the service.
type BlobStore interface {
	// Write stores r under key. size is -1 when unknown.
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Read returns the object; the caller closes it.
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]FileInfo, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// RoomPrefix is the key prefix for every file of a room.
func RoomPrefix(roomID uuid.UUID) string {
	return fmt.Sprintf("rooms/%s/", roomID)
}

// RoomKey builds rooms/<id>/<file>, keeping only the base name of fileName.
func RoomKey(roomID uuid.UUID, fileName string) (string, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrInvalidName
	}
	return RoomPrefix(roomID) + name, nil
}
