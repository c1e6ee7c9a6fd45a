package websocket

import "github.com/lensvault/lensvault_server/internal/archive"

type MessageType string

const (
	// Incoming: lightbox and download commands from the viewer.
	MessageTypeOpen        MessageType = "open"
	MessageTypeNext        MessageType = "next"
	MessageTypePrevious    MessageType = "previous"
	MessageTypeClose       MessageType = "close"
	MessageTypeDownload        MessageType = "download"
	MessageTypeDownloadCurrent MessageType = "download_current"
	MessageTypeDownloadAll     MessageType = "download_all"
	MessageTypePing        MessageType = "ping"

	// Outgoing.
	MessageTypeConnected MessageType = "connected"
	MessageTypeState     MessageType = "state"
	MessageTypePlan      MessageType = "plan"
	MessageTypeProgress  MessageType = "progress"
	MessageTypePong      MessageType = "pong"
	MessageTypeError     MessageType = "error"
)

type IncomingMessage struct {
	Type  MessageType `json:"type"`
	Index int         `json:"index,omitempty"`
}

type OutgoingMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// StateMessage reflects the lightbox after every command, whether or not the
// command changed anything.
type StateMessage struct {
	Type  MessageType `json:"type"`
	Open  bool        `json:"open"`
	Index int         `json:"index"`
}

// PlanMessage is the verdict for a download command. The socket never carries
// file bytes; Execution happens over HTTP at URL.
type PlanMessage struct {
	Type        MessageType `json:"type"`
	Action      string      `json:"action"`
	URL         string      `json:"url,omitempty"`
	PinRequired bool        `json:"pinRequired,omitempty"`
}

type ProgressMessage struct {
	Type MessageType `json:"type"`
	archive.ProgressUpdate
}

type progressBroadcast struct {
	SessionID string
	Update    archive.ProgressUpdate
}
