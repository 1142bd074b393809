package domain

// MessageType definition message variant
type MessageType string

const (
	// MessageText plain text message
	MessageText MessageType = "text"
	// MessageMedia binary media message
	MessageMedia MessageType = "media"
)

// Message is one entry of a room's append-only log. ID and Timestamp
// are assigned server-side at append time; client-supplied values for
// either are discarded.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"` // milliseconds since epoch
	Sender    string      `json:"sender,omitempty"`
	Username  string      `json:"username,omitempty"`
	RoomID    string      `json:"roomId,omitempty"`
	OneTime   bool        `json:"oneTime,omitempty"`
	MediaType string      `json:"mediaType,omitempty"`
	Filename  string      `json:"filename,omitempty"`
	ViewedBy  []string    `json:"viewedBy,omitempty"`
}

// Expired marks the content a viewer gets once a one-time media
// message has been consumed by that viewer.
const Expired = "expired"

// MaskFor returns the message as it may be disclosed to viewerID. For
// one-time media already viewed by viewerID the content handle is
// replaced with the expired marker.
func (m Message) MaskFor(viewerID string) Message {
	if !m.OneTime || m.Type != MessageMedia {
		return m
	}
	for _, v := range m.ViewedBy {
		if v == viewerID {
			m.Content = Expired
			return m
		}
	}
	return m
}

// MediaMeta is the sender-supplied description of an upload, merged
// into the finalized media Message on completion.
type MediaMeta struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Sender   string `json:"sender"`
	Username string `json:"username"`
	OneTime  bool   `json:"oneTime"`
}
