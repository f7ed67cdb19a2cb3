package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrMalformedFrame  = errors.New("malformed price frame")
)

// Frame is one raw WebSocket message with its receive timestamp.
type Frame struct {
	Data       []byte    // Raw message bytes
	ReceivedAt time.Time // Local time when ReadMessage returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL               string        // WebSocket URL (e.g., wss://feed.example.com/prices)
	APIKey            string        // Sent as a bearer token when set
	PingTimeout       time.Duration // Max time without a pong before the connection is stale
	WriteTimeout      time.Duration // Write deadline for sends and control frames
	HeartbeatInterval time.Duration // How often to ping the server
	BufferSize        int           // Frame channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		BufferSize:        1024,
	}
}

// tickMessage is the wire shape of a pushed price tick. Both the long and
// the short key forms are accepted.
type tickMessage struct {
	Symbol string     `json:"symbol"`
	S      string     `json:"s"`
	Price  *jsonPrice `json:"price"`
	P      *jsonPrice `json:"p"`
}

// FeedStats holds feed counters.
type FeedStats struct {
	Frames    int64 // Frames read from the socket
	Published int64 // Frames that produced a hub emission
	Malformed int64 // Frames that could not be decoded
}
