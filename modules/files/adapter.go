package files

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// UploadsPort is the upload surface other modules use (hexagonal port).
type UploadsPort interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (StoreFileResponse, error)
	Fetch(ctx context.Context, name string) (FetchFileResponse, error)
}

// uploadsAdapter implements UploadsPort over the files module's
// ServiceContainer.
type uploadsAdapter struct {
	container mono.ServiceContainer
}

// NewUploadsAdapter creates an adapter for the upload services.
// container is received via SetDependencyServiceContainer.
func NewUploadsAdapter(container mono.ServiceContainer) UploadsPort {
	if container == nil {
		panic("files: UploadsPort requires a non-nil ServiceContainer")
	}
	return &uploadsAdapter{container: container}
}

// Store saves a file via the store-file service.
func (a *uploadsAdapter) Store(ctx context.Context, name string, data []byte, contentType string) (StoreFileResponse, error) {
	req := StoreFileRequest{Name: name, Data: data, ContentType: contentType}
	var resp StoreFileResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"store-file",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return StoreFileResponse{}, fmt.Errorf("store-file service call failed: %w", err)
	}
	return resp, nil
}

// Fetch retrieves a file via the fetch-file service.
func (a *uploadsAdapter) Fetch(ctx context.Context, name string) (FetchFileResponse, error) {
	req := FetchFileRequest{Name: name}
	var resp FetchFileResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"fetch-file",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return FetchFileResponse{}, fmt.Errorf("fetch-file service call failed: %w", err)
	}
	return resp, nil
}
