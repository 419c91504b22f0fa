package agent

import (
	"fmt"
	"log/slog"

	"github.com/deskrelay-io/deskrelay/internal/store"
	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// Support executes ticketing purposes, including the two-step
// cancel+billing negotiation. It is the only agent that creates tickets
// outside the explicit create_ticket path.
type Support struct {
	Store             store.Store
	DefaultCustomerID int64
	Logger            *slog.Logger
}

// NewSupport creates the support agent.
func NewSupport(st store.Store, defaultCustomerID int64, logger *slog.Logger) *Support {
	if logger == nil {
		logger = slog.Default()
	}
	return &Support{Store: st, DefaultCustomerID: defaultCustomerID, Logger: logger}
}

func (a *Support) Name() protocol.AgentName { return protocol.AgentSupport }

func (a *Support) Handle(msg protocol.Message, state *protocol.ConversationState) ([]protocol.Message, error) {
	state.AddLog(fmt.Sprintf("SupportAgent received: %s", msg.Purpose))

	switch msg.Purpose {
	case protocol.PurposeHandleSupportRequest:
		return a.handleSupportRequest(msg, state)

	case protocol.PurposeNegotiateCancelBilling:
		// First step of the negotiation: refuse to resolve until the
		// router supplies billing history.
		return []protocol.Message{protocol.NewMessage(
			protocol.AgentSupport, protocol.AgentRouter,
			protocol.PurposeSupportNeedsBillingContext,
			"I can handle cancel + billing, but I need billing context (tickets) first.",
			nil,
		)}, nil

	case protocol.PurposeHandleBillingAndCancel:
		return a.handleBillingAndCancel(msg, state)

	case protocol.PurposeGatherOpenTickets:
		return a.gather(msg, state, protocol.PurposeOpenTicketsResult, "open_tickets", "Open tickets gathered.",
			func(t protocol.Ticket) bool { return t.Status == protocol.TicketOpen })

	case protocol.PurposeGatherHighPriorityTickets:
		return a.gather(msg, state, protocol.PurposeHighPriorityTicketsResult, "high_priority_tickets", "High priority tickets gathered.",
			func(t protocol.Ticket) bool { return t.Priority == protocol.PriorityHigh })

	case protocol.PurposeHandleBillingEscalation:
		return a.handleBillingEscalation(state)
	}

	return nil, fmt.Errorf("support: unrecognized purpose %q", msg.Purpose)
}

func (a *Support) handleSupportRequest(msg protocol.Message, state *protocol.ConversationState) ([]protocol.Message, error) {
	cust, err := payloadCustomer(msg.Payload, "customer")
	if err != nil || cust == nil {
		cust = state.Customer
	}

	intent := protocol.Intent("general")
	switch v := msg.Payload["intent"].(type) {
	case protocol.Intent:
		intent = v
	case string:
		intent = protocol.Intent(v)
	}

	var reply string
	switch intent {
	case protocol.IntentGetCustomerInfo:
		if cust == nil {
			reply = "We could not locate a customer record for this request."
		} else {
			reply = fmt.Sprintf("Customer %d is %s (%s). Status: %s.", cust.ID, cust.Name, cust.Email, cust.Status)
		}
	case protocol.IntentUpgradeAccount:
		reply = "I can help you upgrade your account. Your plan has been upgraded to premium and a confirmation email is on its way."
	default:
		reply = "Thanks for reaching out. A support specialist will follow up with you shortly."
	}

	return []protocol.Message{a.reply(reply, nil)}, nil
}

// handleBillingAndCancel completes the negotiation: with billing context
// in hand it opens one high-priority ticket and answers with a combined
// cancellation + refund message.
func (a *Support) handleBillingAndCancel(msg protocol.Message, state *protocol.ConversationState) ([]protocol.Message, error) {
	cid := state.CustomerID
	if cid == 0 {
		if v, err := payloadInt64(msg.Payload, "customer_id"); err == nil {
			cid = v
		} else {
			cid = a.DefaultCustomerID
		}
	}

	ticket, err := a.Store.CreateTicket(cid, "Billing issue: double charge & cancellation request", protocol.PriorityHigh)
	if err != nil {
		return nil, fmt.Errorf("support: %s: %w", msg.Purpose, err)
	}
	a.Logger.Info("billing+cancel ticket created",
		"conversation", state.ID,
		"ticket", ticket.ID,
		"customer", cid,
	)

	reply := fmt.Sprintf(
		"I've created a high-priority billing ticket #%d and initiated your cancellation. "+
			"Our team will review your billing history and process your refund as quickly as possible.",
		ticket.ID,
	)
	return []protocol.Message{a.reply(reply, map[string]any{"ticket": ticket})}, nil
}

func (a *Support) handleBillingEscalation(state *protocol.ConversationState) ([]protocol.Message, error) {
	cid := state.CustomerID
	if cid == 0 {
		cid = a.DefaultCustomerID
	}

	ticket, err := a.Store.CreateTicket(cid, "Urgent billing issue: charged twice, refund requested", protocol.PriorityHigh)
	if err != nil {
		return nil, fmt.Errorf("support: %s: %w", protocol.PurposeHandleBillingEscalation, err)
	}
	a.Logger.Info("billing escalation ticket created",
		"conversation", state.ID,
		"ticket", ticket.ID,
		"customer", cid,
	)

	reply := fmt.Sprintf(
		"I've created a high-priority ticket #%d for your billing issue. "+
			"Our billing team will review and process your refund as soon as possible.",
		ticket.ID,
	)
	return []protocol.Message{a.reply(reply, map[string]any{"ticket": ticket})}, nil
}

// gather fetches each listed customer's history and keeps the tickets
// the filter accepts, paired with their customer.
func (a *Support) gather(msg protocol.Message, state *protocol.ConversationState, resultPurpose, resultKey, content string, keep func(protocol.Ticket) bool) ([]protocol.Message, error) {
	customers, err := payloadCustomers(msg.Payload, "customers")
	if err != nil {
		return nil, fmt.Errorf("support: %s: %w", msg.Purpose, err)
	}

	matches := []protocol.TicketMatch{}
	for _, c := range customers {
		history, err := a.Store.CustomerHistory(c.ID)
		if err != nil {
			return nil, fmt.Errorf("support: %s: customer %d: %w", msg.Purpose, c.ID, err)
		}
		for _, t := range history {
			if keep(t) {
				matches = append(matches, protocol.TicketMatch{Customer: c, Ticket: t})
			}
		}
	}

	a.Logger.Debug("tickets gathered",
		"conversation", state.ID,
		"purpose", msg.Purpose,
		"customers", len(customers),
		"matches", len(matches),
	)
	return []protocol.Message{protocol.NewMessage(
		protocol.AgentSupport, protocol.AgentRouter, resultPurpose, content,
		map[string]any{resultKey: matches},
	)}, nil
}

func (a *Support) reply(text string, extra map[string]any) protocol.Message {
	payload := map[string]any{"reply": text}
	for k, v := range extra {
		payload[k] = v
	}
	return protocol.NewMessage(protocol.AgentSupport, protocol.AgentRouter, protocol.PurposeSupportReply, text, payload)
}
