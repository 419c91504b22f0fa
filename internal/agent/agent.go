// Package agent implements the three participants of the support
// workflow: the router that classifies and dispatches, the customer-data
// agent that executes repository reads and writes, and the support agent
// that handles ticketing and negotiation. Handlers are deterministic:
// the same message and state always produce the same output messages.
package agent

import (
	"fmt"

	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// Handler processes one message addressed to the agent and returns the
// messages to append to the conversation queue, in emission order. A
// returned error means the caller violated the handler's contract
// (unknown purpose for a specialist, missing payload key); it is fatal
// for that message and never retried.
type Handler interface {
	Name() protocol.AgentName
	Handle(msg protocol.Message, state *protocol.ConversationState) ([]protocol.Message, error)
}

// --- payload accessors ---
//
// Payload values are produced in-process by the peer agent, so a missing
// or mistyped key is a programming error on the sender's side, reported
// as a contract violation.

func payloadInt64(payload map[string]any, key string) (int64, error) {
	v, ok := payload[key]
	if !ok {
		return 0, fmt.Errorf("payload key %q missing", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("payload key %q: unexpected type %T", key, v)
}

func payloadString(payload map[string]any, key string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("payload key %q missing", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("payload key %q: unexpected type %T", key, v)
	}
	return s, nil
}

func payloadMap(payload map[string]any, key string) (map[string]any, error) {
	v, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("payload key %q missing", key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("payload key %q: unexpected type %T", key, v)
	}
	return m, nil
}

// payloadCustomer reads a customer record; a nil value is legal and
// means "absent" (the missing-data case, not an error).
func payloadCustomer(payload map[string]any, key string) (*protocol.Customer, error) {
	v, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("payload key %q missing", key)
	}
	if v == nil {
		return nil, nil
	}
	c, ok := v.(*protocol.Customer)
	if !ok {
		return nil, fmt.Errorf("payload key %q: unexpected type %T", key, v)
	}
	return c, nil
}

func payloadCustomers(payload map[string]any, key string) ([]protocol.Customer, error) {
	v, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("payload key %q missing", key)
	}
	if v == nil {
		return nil, nil
	}
	cs, ok := v.([]protocol.Customer)
	if !ok {
		return nil, fmt.Errorf("payload key %q: unexpected type %T", key, v)
	}
	return cs, nil
}

func payloadTickets(payload map[string]any, key string) ([]protocol.Ticket, error) {
	v, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("payload key %q missing", key)
	}
	if v == nil {
		return nil, nil
	}
	ts, ok := v.([]protocol.Ticket)
	if !ok {
		return nil, fmt.Errorf("payload key %q: unexpected type %T", key, v)
	}
	return ts, nil
}

func payloadMatches(payload map[string]any, key string) ([]protocol.TicketMatch, error) {
	v, ok := payload[key]
	if !ok {
		return nil, fmt.Errorf("payload key %q missing", key)
	}
	if v == nil {
		return nil, nil
	}
	ms, ok := v.([]protocol.TicketMatch)
	if !ok {
		return nil, fmt.Errorf("payload key %q: unexpected type %T", key, v)
	}
	return ms, nil
}
