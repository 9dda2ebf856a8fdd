package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/example/chat-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Module persists every chat message to SQLite and serves history
// queries. Persistence is best-effort: a failed write is logged, never
// propagated back to the sender or the room.
type Module struct {
	db     *gorm.DB
	store  *Store
	dbPath string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new history Module.
func NewModule() *Module {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "chat-history.db"
	}
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "history"
}

// Start initializes the database connection and runs migrations.
func (m *Module) Start(_ context.Context) error {
	log.Printf("[history] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	m.db = db

	if err := m.db.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.store = NewStore(m.db)

	log.Println("[history] Module started successfully")
	return nil
}

// Stop gracefully closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	log.Println("[history] Closing database connection...")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[history] Database connection closed")
	return nil
}

// Health performs a health check on the history module.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	count, _ := m.store.Count()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver":          "sqlite",
			"path":            m.dbPath,
			"stored_messages": count,
		},
	}
}

// RegisterServices registers the history query services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "query-before", json.Unmarshal, json.Marshal, m.queryBefore,
	); err != nil {
		return fmt.Errorf("failed to register query-before service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "search", json.Unmarshal, json.Marshal, m.search,
	); err != nil {
		return fmt.Errorf("failed to register search service: %w", err)
	}

	log.Printf("[history] Registered services: services.history.{query-before,search}")
	return nil
}

// RegisterEventConsumers subscribes to chat messages for persistence.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	log.Println("[history] Registered event consumers: MessageSent")
	return nil
}

// handleMessageSent appends the message to the log. Errors are logged
// and swallowed so a storage hiccup never disturbs live delivery.
func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	if m.store == nil {
		log.Printf("[history] Warning: store not ready, dropping message %s", event.Message.ID)
		return nil
	}
	if err := m.store.Append(event.Message); err != nil {
		log.Printf("[history] Warning: failed to persist message %s in room %s: %v",
			event.Message.ID, event.RoomID, err)
	}
	return nil
}

// Service handlers.

func (m *Module) queryBefore(_ context.Context, req QueryBeforeRequest, _ *mono.Msg) (QueryBeforeResponse, error) {
	messages, err := m.store.QueryBefore(req.RoomID, req.Before, req.Limit)
	if err != nil {
		return QueryBeforeResponse{}, err
	}
	return QueryBeforeResponse{Messages: messages}, nil
}

func (m *Module) search(_ context.Context, req SearchRequest, _ *mono.Msg) (SearchResponse, error) {
	messages, err := m.store.Search(req.RoomID, req.Keyword)
	if err != nil {
		return SearchResponse{}, err
	}
	return SearchResponse{Messages: messages}, nil
}
