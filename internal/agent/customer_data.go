package agent

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/deskrelay-io/deskrelay/internal/store"
	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// CustomerData executes data-access purposes against the repository and
// reports each result back to the router. It never addresses the user
// or the support agent directly.
type CustomerData struct {
	Store  store.Store
	Logger *slog.Logger
}

// NewCustomerData creates the customer-data agent.
func NewCustomerData(st store.Store, logger *slog.Logger) *CustomerData {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerData{Store: st, Logger: logger}
}

func (a *CustomerData) Name() protocol.AgentName { return protocol.AgentCustomerData }

func (a *CustomerData) Handle(msg protocol.Message, state *protocol.ConversationState) ([]protocol.Message, error) {
	state.AddLog(fmt.Sprintf("CustomerDataAgent received: %s", msg.Purpose))

	switch msg.Purpose {
	case protocol.PurposeGetCustomerInfo:
		cid, err := payloadInt64(msg.Payload, "customer_id")
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		cust, err := a.Store.GetCustomer(cid)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		// An absent customer is a valid negative result; the router
		// turns it into the user-facing "not found" message. A record
		// already resolved earlier in the conversation is kept.
		if cust != nil {
			state.Customer = cust
		}
		return []protocol.Message{a.result(protocol.PurposeCustomerInfoResult, "Customer info fetched.",
			map[string]any{"customer": cust})}, nil

	case protocol.PurposeGetCustomerHistory:
		cid, err := payloadInt64(msg.Payload, "customer_id")
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		history, err := a.Store.CustomerHistory(cid)
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		state.Tickets = history
		return []protocol.Message{a.result(protocol.PurposeCustomerHistoryResult, "Customer history fetched.",
			map[string]any{"tickets": history})}, nil

	case protocol.PurposeListCustomers:
		status, err := payloadString(msg.Payload, "status")
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		limit := 50
		if n, err := payloadInt64(msg.Payload, "limit"); err == nil {
			limit = int(n)
		}
		customers, err := a.Store.ListCustomers(status, limit)
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		return []protocol.Message{a.result(protocol.PurposeCustomersListResult, "Customer list fetched.",
			map[string]any{"customers": customers})}, nil

	case protocol.PurposeUpdateCustomer:
		cid, err := payloadInt64(msg.Payload, "customer_id")
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		data, err := payloadMap(msg.Payload, "data")
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		updated, err := a.Store.UpdateCustomer(cid, data)
		if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrNoFields) {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		if updated != nil {
			state.Customer = updated
		} else {
			a.Logger.Warn("customer update produced no record",
				"conversation", state.ID,
				"customer_id", cid,
				"error", err,
			)
		}
		return []protocol.Message{a.result(protocol.PurposeCustomerUpdateResult, "Customer updated.",
			map[string]any{"customer": updated})}, nil

	case protocol.PurposeCreateTicket:
		cid, err := payloadInt64(msg.Payload, "customer_id")
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		issue, err := payloadString(msg.Payload, "issue")
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		priority := protocol.PriorityMedium
		if p, err := payloadString(msg.Payload, "priority"); err == nil {
			priority = protocol.TicketPriority(p)
		}
		ticket, err := a.Store.CreateTicket(cid, issue, priority)
		if err != nil {
			return nil, fmt.Errorf("customer_data: %s: %w", msg.Purpose, err)
		}
		return []protocol.Message{a.result(protocol.PurposeTicketCreateResult, "Ticket created.",
			map[string]any{"ticket": ticket})}, nil
	}

	return nil, fmt.Errorf("customer_data: unrecognized purpose %q", msg.Purpose)
}

func (a *CustomerData) result(purpose, content string, payload map[string]any) protocol.Message {
	return protocol.NewMessage(protocol.AgentCustomerData, protocol.AgentRouter, purpose, content, payload)
}
