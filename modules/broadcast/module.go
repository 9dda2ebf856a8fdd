package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/example/chat-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module is an EventConsumerModule that fans chat events out to
// connected WebSocket clients through the hub.
type Module struct {
	hub *Hub
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast Module.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	log.Println("[broadcast] Module started - WebSocket hub ready")
	return nil
}

// Stop closes all remaining client connections.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	m.hub.CloseAll()
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	// Subscribe to MessageSent events
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	// Subscribe to UserJoined events
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	// Subscribe to UserLeft events
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	// Subscribe to OnlineCount events
	if err := helper.RegisterTypedEventConsumer(
		registry, events.OnlineCountV1, m.handleOnlineCount, m,
	); err != nil {
		return fmt.Errorf("failed to register OnlineCount consumer: %w", err)
	}

	// Subscribe to RoomCreated events
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers: MessageSent, UserJoined, UserLeft, OnlineCount, RoomCreated")
	return nil
}

// Event handlers. Each one relays the wire message carried by the event
// to everyone in the room.

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.hub.Broadcast(event.RoomID, event.Message)
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] User %s joined room %s", event.UserID, event.RoomID)
	m.hub.Broadcast(event.RoomID, event.Message)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] User %s left room %s", event.UserID, event.RoomID)
	m.hub.Broadcast(event.RoomID, event.Message)
	return nil
}

func (m *Module) handleOnlineCount(_ context.Context, event events.OnlineCountEvent, _ *mono.Msg) error {
	m.hub.Broadcast(event.RoomID, event.Message)
	return nil
}

// handleRoomCreated only records the fact. Room creation has no wire
// representation: nobody is in a room that was just created.
func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] Room created: %s (maxUsers: %d, protected: %v)",
		event.RoomID, event.MaxUsers, event.Protected)
	return nil
}

// GetHub returns the WebSocket hub for the API module and the chat
// coordinator to use.
func (m *Module) GetHub() *Hub {
	return m.hub
}
