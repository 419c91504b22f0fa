// Package connector defines the interface between external chat
// platforms and the conversation engine.
package connector

import "context"

// Connector is the interface for external messaging platforms (Telegram, Slack, etc.).
type Connector interface {
	// Name returns the connector type (e.g., "telegram", "slack").
	Name() string
	// Start begins listening for inbound messages. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
	// Send delivers an outbound message to the external platform.
	Send(ctx context.Context, msg OutboundMessage) error
}

// OutboundMessage is a response sent back to an external platform.
type OutboundMessage struct {
	ChatID  string // Platform-specific chat identifier
	Content string // Message text
}

// InboundMessage is a customer query received from an external platform.
type InboundMessage struct {
	Channel  string // Connector name (e.g., "telegram")
	SenderID string // Platform-specific sender identifier
	ChatID   string // Platform-specific chat identifier
	Content  string // Query text
}

// InboundHandler turns an inbound query into a response. Connectors
// deliver the returned text back to the originating chat.
type InboundHandler func(ctx context.Context, msg InboundMessage) (string, error)
