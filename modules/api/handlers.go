package api

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/example/chat-relay/modules/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// Room management
	m.app.Post("/rooms", m.createRoom)
	m.app.Get("/rooms/:roomId", m.getRoom)

	// History
	m.app.Get("/messages", m.getMessages)
	m.app.Get("/messages/search", m.searchMessages)

	// Uploads
	m.app.Post("/upload", m.uploadFile)
	m.app.Get("/uploads/:name", m.getUpload)

	// Web client
	m.app.Static("/", m.webDir)
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// createRoomBody is the POST /rooms request. MaxUsers is kept raw
// because clients send it both as a number and as a string.
type createRoomBody struct {
	RoomID   string          `json:"roomId"`
	OwnerID  string          `json:"ownerId"`
	Password string          `json:"password"`
	MaxUsers json.RawMessage `json:"maxUsers"`
}

// createRoom handles POST /rooms.
func (m *Module) createRoom(c *fiber.Ctx) error {
	var req createRoomBody
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("invalid request body"))
	}

	if req.RoomID == "" || req.OwnerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("roomId and ownerId are required"))
	}

	room, err := m.rooms.CreateRoom(c.UserContext(), req.RoomID, req.OwnerID, req.Password, flexibleInt(req.MaxUsers))
	if err != nil {
		if errors.Is(err, chat.ErrRoomExists) {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody("room already exists"))
		}
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("failed to create room"))
	}

	return c.JSON(dataBody(room))
}

// getRoom handles GET /rooms/:roomId.
func (m *Module) getRoom(c *fiber.Ctx) error {
	roomID := c.Params("roomId")

	room, found, err := m.rooms.GetRoom(c.UserContext(), roomID)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	if !found {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("room does not exist"))
	}

	return c.JSON(dataBody(RoomInfo{
		RoomID:      room.RoomID,
		OwnerID:     room.OwnerID,
		HasPassword: room.HasPassword,
		MaxUsers:    room.MaxUsers,
		OnlineCount: m.hub.RoomClientCount(roomID),
	}))
}

// getMessages handles GET /messages. Access to a protected room's
// history requires the room password in the query string.
func (m *Module) getMessages(c *fiber.Ctx) error {
	roomID := c.Query("roomId")
	if roomID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("roomId is required"))
	}

	if status, body := m.authorizeHistory(c, roomID); status != 0 {
		return c.Status(status).JSON(body)
	}

	var before int64
	if raw := c.Query("before"); raw != "" {
		before, _ = strconv.ParseInt(raw, 10, 64)
	}
	var limit int
	if raw := c.Query("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	messages, err := m.messages.QueryBefore(c.UserContext(), roomID, before, limit)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(messagesBody(messages))
}

// searchMessages handles GET /messages/search.
func (m *Module) searchMessages(c *fiber.Ctx) error {
	roomID := c.Query("roomId")
	keyword := c.Query("keyword")
	if roomID == "" || keyword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("roomId and keyword are required"))
	}

	if status, body := m.authorizeHistory(c, roomID); status != 0 {
		return c.Status(status).JSON(body)
	}

	messages, err := m.messages.Search(c.UserContext(), roomID, keyword)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(messagesBody(messages))
}

// authorizeHistory runs the shared room check of the history endpoints:
// the room must exist and, when protected, the supplied password must
// match. A zero status means access is granted.
func (m *Module) authorizeHistory(c *fiber.Ctx, roomID string) (int, ErrorResponse) {
	found, ok, err := m.rooms.CheckPassword(c.UserContext(), roomID, c.Query("password"))
	if err != nil {
		return fiber.StatusInternalServerError, errorBody("internal server error")
	}
	if !found {
		return fiber.StatusNotFound, errorBody("room does not exist")
	}
	if !ok {
		return fiber.StatusForbidden, errorBody("wrong room password")
	}
	return 0, ErrorResponse{}
}

// uploadFile handles POST /upload (multipart field "file").
func (m *Module) uploadFile(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorBody("no file received"))
	}

	f, err := header.Open()
	if err != nil {
		return fiber.ErrInternalServerError
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	contentType := header.Header.Get("Content-Type")
	stored, err := m.uploads.Store(c.UserContext(), header.Filename, data, contentType)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(UploadResponse{
		OK:       true,
		URL:      stored.URL,
		FileType: contentType,
		FileName: header.Filename,
	})
}

// getUpload handles GET /uploads/:name.
func (m *Module) getUpload(c *fiber.Ctx) error {
	name := c.Params("name")
	resp, err := m.uploads.Fetch(c.UserContext(), name)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	if !resp.Found {
		return c.Status(fiber.StatusNotFound).JSON(errorBody("file not found"))
	}

	c.Set(fiber.HeaderContentType, resp.ContentType)
	return c.Send(resp.Data)
}

// flexibleInt parses a JSON value that may be a number or a quoted
// number. Anything else means unlimited.
func flexibleInt(raw json.RawMessage) int {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	return chat.ParseMaxUsers(s)
}
