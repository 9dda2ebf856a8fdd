package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/chat-relay/events"
)

// Module owns the room registry and the per-session join/chat/disconnect
// protocol. It emits chat events on the bus; the broadcast and history
// modules consume them.
type Module struct {
	registry *RoomRegistry
	presence Presence
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule() *Module {
	return &Module{
		registry: NewRoomRegistry(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// SetPresence injects the membership surface of the broadcast hub.
// Called from main.go because the hub is not exposed via ServiceContainer.
func (m *Module) SetPresence(p Presence) {
	m.presence = p
}

// Registry returns the room registry.
func (m *Module) Registry() *RoomRegistry {
	return m.registry
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageSentV1.ToBase(),
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.OnlineCountV1.ToBase(),
		events.RoomCreatedV1.ToBase(),
	}
}

// RegisterServices registers the room request-reply services used by the
// HTTP API module.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-room", json.Unmarshal, json.Marshal, m.createRoom,
	); err != nil {
		return fmt.Errorf("failed to register create-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-room", json.Unmarshal, json.Marshal, m.getRoom,
	); err != nil {
		return fmt.Errorf("failed to register get-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "check-password", json.Unmarshal, json.Marshal, m.checkPassword,
	); err != nil {
		return fmt.Errorf("failed to register check-password service: %w", err)
	}

	log.Printf("[chat] Registered services: create-room, get-room, check-password")
	return nil
}

// Start validates the module wiring.
func (m *Module) Start(_ context.Context) error {
	if m.presence == nil {
		return fmt.Errorf("presence dependency not set")
	}
	if m.eventBus == nil {
		log.Println("[chat] Warning: eventBus not set, notifications will not be delivered")
	}
	log.Println("[chat] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[chat] Module stopped")
	return nil
}

// createRoom handles the create-room service request.
func (m *Module) createRoom(_ context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	view, err := m.registry.Create(req.RoomID, req.OwnerID, req.Password, req.MaxUsers)
	if err != nil {
		// Policy failures travel in the response so the API can map them
		// to status codes; transport errors stay on the error path.
		return CreateRoomResponse{Created: false, Reason: err.Error()}, nil
	}

	if m.eventBus != nil {
		event := events.RoomCreatedEvent{
			RoomID:    view.RoomID,
			OwnerID:   view.OwnerID,
			MaxUsers:  view.MaxUsers,
			Protected: view.HasPassword,
		}
		if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[chat] Warning: failed to publish RoomCreated for %s: %v", view.RoomID, err)
		}
	}

	log.Printf("[chat] Room created: %s (owner: %s, maxUsers: %d)", view.RoomID, view.OwnerID, view.MaxUsers)
	return CreateRoomResponse{Room: view, Created: true}, nil
}

// getRoom handles the get-room service request.
func (m *Module) getRoom(_ context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	view, found := m.registry.View(req.RoomID)
	return GetRoomResponse{Room: view, Found: found}, nil
}

// checkPassword handles the check-password service request.
func (m *Module) checkPassword(_ context.Context, req CheckPasswordRequest, _ *mono.Msg) (CheckPasswordResponse, error) {
	found, ok := m.registry.CheckPassword(req.RoomID, req.Password)
	return CheckPasswordResponse{Found: found, OK: ok}, nil
}
