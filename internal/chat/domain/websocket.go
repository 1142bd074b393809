package domain

import (
	"encoding/json"
	"errors"
)

// Event websocket event name
type Event string

const (
	// EventJoin client subscribes to a room
	EventJoin Event = "join"
	// EventInit one-time history replay to the joining connection
	EventInit Event = "init"
	// EventMessage append+broadcast of a chat message
	EventMessage Event = "message"
	// EventMediaViewed one-time media consumption state change
	EventMediaViewed Event = "mediaViewed"
	// EventMediaChunk one fragment of a media upload
	EventMediaChunk Event = "media-chunk"
	// EventUploadProgress point-to-point progress feedback to the sender
	EventUploadProgress Event = "upload-progress"
	// EventMediaBinary completed media broadcast to the room
	EventMediaBinary Event = "media-binary"
	// EventError boundary rejection reported back to the sender
	EventError Event = "error"
)

// WSRequest websocket Request. Data stays raw until the event-specific
// payload is decoded and validated at the boundary.
type WSRequest struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSResponse websocket Response
type WSResponse struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// JoinPayload client->server join
type JoinPayload struct {
	RoomID   string `json:"roomId"`
	ViewerID string `json:"viewerId"`
}

// Validate check join shape
func (p JoinPayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("join: missing roomId")
	}
	return nil
}

// MessagePayload client->server message (no id/timestamp; both are
// server-assigned)
type MessagePayload struct {
	RoomID    string      `json:"roomId"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Sender    string      `json:"sender"`
	Username  string      `json:"username"`
	OneTime   bool        `json:"oneTime"`
	MediaType string      `json:"mediaType"`
	Filename  string      `json:"filename"`
}

// Validate check message shape
func (p MessagePayload) Validate() error {
	if p.RoomID == "" {
		return errors.New("message: missing roomId")
	}
	if p.Type != MessageText && p.Type != MessageMedia {
		return errors.New("message: unknown type")
	}
	if p.Type == MessageText && p.Content == "" {
		return errors.New("message: empty content")
	}
	return nil
}

// MediaViewedPayload client->server mediaViewed
type MediaViewedPayload struct {
	MessageID string `json:"messageId"`
	ViewerID  string `json:"viewerId"`
	RoomID    string `json:"roomId"`
}

// Validate check mediaViewed shape
func (p MediaViewedPayload) Validate() error {
	if p.MessageID == "" || p.ViewerID == "" || p.RoomID == "" {
		return errors.New("mediaViewed: missing messageId, viewerId or roomId")
	}
	return nil
}

// ViewedNotice server->client mediaViewed broadcast
type ViewedNotice struct {
	MessageID string `json:"messageId"`
	ViewerID  string `json:"viewerId"`
}

// MediaChunkPayload client->server media-chunk. Chunk travels
// base64-coded inside the JSON envelope.
type MediaChunkPayload struct {
	UploadID    string    `json:"uploadId"`
	Chunk       []byte    `json:"chunk"`
	ChunkIndex  int       `json:"chunkIndex"`
	TotalChunks int       `json:"totalChunks"`
	Meta        MediaMeta `json:"meta"`
	RoomID      string    `json:"roomId"`
}

// Validate check media-chunk shape. Index-range and cross-chunk
// consistency are enforced by the reassembler, which owns the session.
func (p MediaChunkPayload) Validate() error {
	if p.UploadID == "" {
		return errors.New("media-chunk: missing uploadId")
	}
	if p.RoomID == "" {
		return errors.New("media-chunk: missing roomId")
	}
	if len(p.Chunk) == 0 {
		return errors.New("media-chunk: empty chunk")
	}
	if p.TotalChunks <= 0 {
		return errors.New("media-chunk: totalChunks must be positive")
	}
	if p.ChunkIndex < 0 {
		return errors.New("media-chunk: negative chunkIndex")
	}
	return nil
}

// UploadProgress server->sender upload-progress
type UploadProgress struct {
	UploadID string `json:"uploadId"`
	Received int    `json:"received"`
	Total    int    `json:"total"`
	Percent  int    `json:"percent"`
}
