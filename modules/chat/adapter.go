package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// RoomsPort is the room surface other modules use (hexagonal port).
type RoomsPort interface {
	CreateRoom(ctx context.Context, roomID, ownerID, password string, maxUsers int) (RoomView, error)
	GetRoom(ctx context.Context, roomID string) (RoomView, bool, error)
	CheckPassword(ctx context.Context, roomID, password string) (found, ok bool, err error)
}

// roomsAdapter implements RoomsPort over the chat module's
// ServiceContainer.
type roomsAdapter struct {
	container mono.ServiceContainer
}

// NewRoomsAdapter creates an adapter for the chat room services.
// container is received via SetDependencyServiceContainer.
func NewRoomsAdapter(container mono.ServiceContainer) RoomsPort {
	if container == nil {
		panic("chat: RoomsPort requires a non-nil ServiceContainer")
	}
	return &roomsAdapter{container: container}
}

// CreateRoom registers a room via the create-room service. Policy
// failures come back as the registry's sentinel errors.
func (a *roomsAdapter) CreateRoom(ctx context.Context, roomID, ownerID, password string, maxUsers int) (RoomView, error) {
	req := CreateRoomRequest{RoomID: roomID, OwnerID: ownerID, Password: password, MaxUsers: maxUsers}
	var resp CreateRoomResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"create-room",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return RoomView{}, fmt.Errorf("create-room service call failed: %w", err)
	}
	if !resp.Created {
		switch resp.Reason {
		case ErrRoomExists.Error():
			return RoomView{}, ErrRoomExists
		default:
			return RoomView{}, ErrInvalidArgument
		}
	}
	return resp.Room, nil
}

// GetRoom fetches a sanitized room view via the get-room service.
func (a *roomsAdapter) GetRoom(ctx context.Context, roomID string) (RoomView, bool, error) {
	req := GetRoomRequest{RoomID: roomID}
	var resp GetRoomResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-room",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return RoomView{}, false, fmt.Errorf("get-room service call failed: %w", err)
	}
	return resp.Room, resp.Found, nil
}

// CheckPassword validates history/search access via the check-password
// service.
func (a *roomsAdapter) CheckPassword(ctx context.Context, roomID, password string) (bool, bool, error) {
	req := CheckPasswordRequest{RoomID: roomID, Password: password}
	var resp CheckPasswordResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"check-password",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, false, fmt.Errorf("check-password service call failed: %w", err)
	}
	return resp.Found, resp.OK, nil
}
