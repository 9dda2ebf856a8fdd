package files

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module provides upload storage services using NATS JetStream Object
// Store.
type Module struct {
	store   *JetStreamObjectStore
	service *Service
	natsURL string
	bucket  string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new files Module.
func NewModule() *Module {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	bucket := os.Getenv("NATS_BUCKET")
	if bucket == "" {
		bucket = "chat-uploads"
	}
	return &Module{
		natsURL: natsURL,
		bucket:  bucket,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "files"
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "store-file", json.Unmarshal, json.Marshal, m.storeFile,
	); err != nil {
		return fmt.Errorf("failed to register store-file service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "fetch-file", json.Unmarshal, json.Marshal, m.fetchFile,
	); err != nil {
		return fmt.Errorf("failed to register fetch-file service: %w", err)
	}

	log.Printf("[files] Registered services: store-file, fetch-file")
	return nil
}

// Start initializes the module and connects to NATS JetStream.
func (m *Module) Start(ctx context.Context) error {
	var err error
	m.store, err = NewJetStreamObjectStore(m.natsURL, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	if err := m.store.Init(ctx); err != nil {
		m.store.Close()
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	m.service = NewService(m.store)

	log.Printf("[files] Module started (NATS: %s, bucket: %s)", m.natsURL, m.bucket)
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Close()
	}
	log.Println("[files] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	healthy := m.store != nil && m.store.IsConnected()
	message := "connected"
	if !healthy {
		message = "disconnected"
	}
	details := map[string]any{
		"nats_url": m.natsURL,
		"bucket":   m.bucket,
	}
	if healthy && m.service != nil {
		if count, err := m.service.Count(ctx); err == nil {
			details["stored_objects"] = count
		}
	}
	return mono.HealthStatus{
		Healthy: healthy,
		Message: message,
		Details: details,
	}
}

// storeFile handles the store-file service request.
func (m *Module) storeFile(ctx context.Context, req StoreFileRequest, _ *mono.Msg) (StoreFileResponse, error) {
	name, url, err := m.service.Store(ctx, req.Name, req.Data, req.ContentType)
	if err != nil {
		return StoreFileResponse{}, err
	}
	return StoreFileResponse{
		Name: name,
		URL:  url,
		Size: int64(len(req.Data)),
	}, nil
}

// fetchFile handles the fetch-file service request. A missing file is
// reported through Found, not an error, so callers can answer 404.
func (m *Module) fetchFile(ctx context.Context, req FetchFileRequest, _ *mono.Msg) (FetchFileResponse, error) {
	data, contentType, err := m.service.Fetch(ctx, req.Name)
	if err != nil {
		log.Printf("[files] Fetch %s failed: %v", req.Name, err)
		return FetchFileResponse{Name: req.Name, Found: false}, nil
	}
	return FetchFileResponse{
		Name:        req.Name,
		ContentType: contentType,
		Data:        data,
		Found:       true,
	}, nil
}
