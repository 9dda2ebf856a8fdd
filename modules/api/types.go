package api

import domain "github.com/example/chat-relay/domain/chat"

// DataResponse is the success envelope.
type DataResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// UploadResponse is the response for a successful upload. The client
// echoes these fields back in its chat message for the attachment.
type UploadResponse struct {
	OK       bool   `json:"ok"`
	URL      string `json:"url"`
	FileType string `json:"fileType"`
	FileName string `json:"fileName"`
}

// RoomInfo is the room view returned by GET /rooms/:roomId, including
// the live member count.
type RoomInfo struct {
	RoomID      string `json:"roomId"`
	OwnerID     string `json:"ownerId"`
	HasPassword bool   `json:"hasPassword"`
	MaxUsers    int    `json:"maxUsers"`
	OnlineCount int    `json:"onlineCount"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ClientFrame is one inbound WebSocket frame. Action selects the
// transition; the remaining fields are read per action.
type ClientFrame struct {
	Action      string `json:"action"`
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
	Password    string `json:"password"`
	Type        string `json:"type"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
	ClientMsgID string `json:"clientMsgId"`
}

func errorBody(message string) ErrorResponse {
	return ErrorResponse{OK: false, Message: message}
}

func dataBody(data any) DataResponse {
	return DataResponse{OK: true, Data: data}
}

func messagesBody(messages []domain.Message) DataResponse {
	if messages == nil {
		messages = []domain.Message{}
	}
	return dataBody(messages)
}
