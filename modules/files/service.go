package files

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// unsafeChars matches everything that is not kept verbatim in a stored
// file name.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Service provides upload storage operations. Stored names carry a
// millisecond timestamp prefix so repeated uploads of the same file
// never collide, and so /uploads/<name> URLs stay stable.
type Service struct {
	store ObjectStore
}

// NewService creates a new upload service.
func NewService(store ObjectStore) *Service {
	return &Service{store: store}
}

// Store saves an uploaded file and returns its public name and the URL
// path it is served under.
func (s *Service) Store(ctx context.Context, originalName string, data []byte, contentType string) (name, url string, err error) {
	if originalName == "" {
		return "", "", fmt.Errorf("file name is required")
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("file data is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	name = storedName(originalName)
	if _, err := s.store.Put(ctx, name, data, contentType); err != nil {
		return "", "", fmt.Errorf("failed to store file: %w", err)
	}
	return name, "/uploads/" + name, nil
}

// Fetch retrieves a stored file by its public name.
func (s *Service) Fetch(ctx context.Context, name string) ([]byte, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("file name is required")
	}
	data, info, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get file: %w", err)
	}
	return data, info.ContentType, nil
}

// Count returns the number of stored uploads.
func (s *Service) Count(ctx context.Context) (int, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list objects: %w", err)
	}
	return len(objects), nil
}

// storedName sanitizes the original name and prefixes it with the
// current unix-millisecond timestamp.
func storedName(originalName string) string {
	safe := unsafeChars.ReplaceAllString(originalName, "_")
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + safe
}
