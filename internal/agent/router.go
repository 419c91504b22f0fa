package agent

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// intentPatterns maps each intent tag to the phrases that trigger it.
// Within one group, any phrase matches; a group marked allOf requires
// every phrase. Matching is a case-insensitive substring scan, so one
// utterance can pick up several tags.
var intentPatterns = []struct {
	intent  protocol.Intent
	phrases []string
	allOf   bool
}{
	{protocol.IntentGetCustomerInfo, []string{"get customer information", "get customer info", "information for id"}, false},
	{protocol.IntentUpgradeAccount, []string{"upgrade"}, false},
	{protocol.IntentCancelSubscription, []string{"cancel", "subscription"}, true},
	{protocol.IntentBillingIssue, []string{"billing", "charged twice", "refund"}, false},
	{protocol.IntentActiveWithOpenTickets, []string{"active customers", "open tickets"}, true},
	{protocol.IntentHighPriorityPremium, []string{"high-priority", "premium customers"}, true},
	{protocol.IntentUpdateEmail, []string{"update my email"}, false},
	{protocol.IntentTicketHistory, []string{"ticket history"}, false},
}

// Router classifies user utterances, routes work to the specialist
// agents, and reacts to every downstream response until a final answer
// can be sent to the user.
type Router struct {
	DefaultCustomerID int64
	Logger            *slog.Logger
}

// NewRouter creates a router. defaultCustomerID is used when the
// utterance names no customer id.
func NewRouter(defaultCustomerID int64, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{DefaultCustomerID: defaultCustomerID, Logger: logger}
}

func (r *Router) Name() protocol.AgentName { return protocol.AgentRouter }

// InferIntents scans the utterance for every known phrase pattern and
// returns a tag per match. Inference is monotone: patterns are checked
// independently, never as an exclusive choice.
func (r *Router) InferIntents(text string) []protocol.Intent {
	lower := strings.ToLower(text)
	var intents []protocol.Intent
	for _, p := range intentPatterns {
		if matchesPattern(lower, p.phrases, p.allOf) {
			intents = append(intents, p.intent)
		}
	}
	return intents
}

func matchesPattern(lower string, phrases []string, allOf bool) bool {
	for _, ph := range phrases {
		found := strings.Contains(lower, ph)
		if allOf && !found {
			return false
		}
		if !allOf && found {
			return true
		}
	}
	return allOf
}

// ExtractCustomerID looks for the literal token "ID" (any case)
// followed by an integer token. Commas count as token separators.
func (r *Router) ExtractCustomerID(text string) (int64, bool) {
	tokens := strings.Fields(strings.ReplaceAll(text, ",", " "))
	for i, tok := range tokens {
		if !strings.EqualFold(tok, "id") || i+1 >= len(tokens) {
			continue
		}
		if id, err := strconv.ParseInt(tokens[i+1], 10, 64); err == nil {
			return id, true
		}
	}
	return 0, false
}

// ExtractEmail returns the first token containing an @ sign.
func (r *Router) ExtractEmail(text string) (string, bool) {
	for _, tok := range strings.Fields(strings.ReplaceAll(text, ",", " ")) {
		if strings.Contains(tok, "@") {
			return tok, true
		}
	}
	return "", false
}

func (r *Router) Handle(msg protocol.Message, state *protocol.ConversationState) ([]protocol.Message, error) {
	state.AddLog(fmt.Sprintf("Router received: %s from %s", msg.Purpose, msg.Sender))

	switch msg.Sender {
	case protocol.AgentUser:
		return r.handleUserQuery(msg, state), nil
	case protocol.AgentCustomerData:
		return r.handleDataResponse(msg, state)
	case protocol.AgentSupport:
		return r.handleSupportResponse(msg, state)
	}

	r.Logger.Warn("message from unknown sender dropped",
		"conversation", state.ID,
		"sender", msg.Sender,
		"purpose", msg.Purpose,
	)
	return nil, nil
}

// handleUserQuery runs intent inference and the routing table. The rows
// are evaluated in priority order; the first match wins and the final
// row guarantees every intent combination routes somewhere.
func (r *Router) handleUserQuery(msg protocol.Message, state *protocol.ConversationState) []protocol.Message {
	state.Intents = r.InferIntents(msg.Content)

	cid, ok := r.ExtractCustomerID(msg.Content)
	if !ok {
		cid = r.DefaultCustomerID
	}
	state.CustomerID = cid

	r.Logger.Debug("intents inferred",
		"conversation", state.ID,
		"intents", state.Intents,
		"customer_id", cid,
	)

	switch {
	case state.HasIntent(protocol.IntentGetCustomerInfo) && len(state.Intents) == 1:
		return []protocol.Message{r.askData(protocol.PurposeGetCustomerInfo, "Fetch customer info",
			map[string]any{"customer_id": cid})}

	case state.HasIntent(protocol.IntentUpgradeAccount):
		// Upgrade is handled downstream by support once the record is in hand.
		return []protocol.Message{r.askData(protocol.PurposeGetCustomerInfo, "Fetch customer info before upgrade",
			map[string]any{"customer_id": cid})}

	case state.HasIntent(protocol.IntentCancelSubscription) && state.HasIntent(protocol.IntentBillingIssue):
		return []protocol.Message{r.askSupport(protocol.PurposeNegotiateCancelBilling,
			"Can you handle cancel + billing?", nil)}

	case state.HasIntent(protocol.IntentBillingIssue):
		return []protocol.Message{r.askSupport(protocol.PurposeHandleBillingEscalation,
			"Urgent billing escalation", nil)}

	case state.HasIntent(protocol.IntentActiveWithOpenTickets),
		state.HasIntent(protocol.IntentHighPriorityPremium):
		return []protocol.Message{r.askData(protocol.PurposeListCustomers, "List active customers",
			map[string]any{"status": "active", "limit": 100})}

	case state.HasIntent(protocol.IntentUpdateEmail) && state.HasIntent(protocol.IntentTicketHistory):
		data := map[string]any{}
		if email, ok := r.ExtractEmail(msg.Content); ok {
			data["email"] = email
		}
		return []protocol.Message{r.askData(protocol.PurposeUpdateCustomer, "Update email",
			map[string]any{"customer_id": cid, "data": data})}

	default:
		return []protocol.Message{r.askData(protocol.PurposeGetCustomerInfo, "Default fetch",
			map[string]any{"customer_id": cid})}
	}
}

func (r *Router) handleDataResponse(msg protocol.Message, state *protocol.ConversationState) ([]protocol.Message, error) {
	switch msg.Purpose {
	case protocol.PurposeCustomerInfoResult:
		cust, err := payloadCustomer(msg.Payload, "customer")
		if err != nil {
			return nil, fmt.Errorf("router: %s: %w", msg.Purpose, err)
		}
		if cust == nil {
			return []protocol.Message{r.finalResponse("Sorry, we could not find your customer record.")}, nil
		}
		intent := protocol.IntentGetCustomerInfo
		content := "Provide customer info."
		if state.HasIntent(protocol.IntentUpgradeAccount) {
			intent = protocol.IntentUpgradeAccount
			content = "Please upgrade this account."
		}
		return []protocol.Message{r.askSupport(protocol.PurposeHandleSupportRequest, content,
			map[string]any{"customer": cust, "intent": intent})}, nil

	case protocol.PurposeCustomersListResult:
		customers, err := payloadCustomers(msg.Payload, "customers")
		if err != nil {
			return nil, fmt.Errorf("router: %s: %w", msg.Purpose, err)
		}
		switch {
		case state.HasIntent(protocol.IntentActiveWithOpenTickets):
			return []protocol.Message{r.askSupport(protocol.PurposeGatherOpenTickets,
				"Gather open tickets for these customers.",
				map[string]any{"customers": customers})}, nil
		case state.HasIntent(protocol.IntentHighPriorityPremium):
			return []protocol.Message{r.askSupport(protocol.PurposeGatherHighPriorityTickets,
				"Gather high priority tickets for these customers.",
				map[string]any{"customers": customers})}, nil
		}

	case protocol.PurposeCustomerHistoryResult:
		tickets, err := payloadTickets(msg.Payload, "tickets")
		if err != nil {
			return nil, fmt.Errorf("router: %s: %w", msg.Purpose, err)
		}
		switch {
		case state.HasIntent(protocol.IntentCancelSubscription) && state.HasIntent(protocol.IntentBillingIssue):
			return []protocol.Message{r.askSupport(protocol.PurposeHandleBillingAndCancel,
				"Use history for billing+cancel.",
				map[string]any{"tickets": tickets})}, nil
		case state.HasIntent(protocol.IntentUpdateEmail) && state.HasIntent(protocol.IntentTicketHistory):
			return []protocol.Message{r.finalResponse(formatEmailUpdate(state.Customer, tickets))}, nil
		}

	case protocol.PurposeCustomerUpdateResult:
		cust, err := payloadCustomer(msg.Payload, "customer")
		if err != nil {
			return nil, fmt.Errorf("router: %s: %w", msg.Purpose, err)
		}
		if cust != nil {
			state.Customer = cust
		}
		return []protocol.Message{r.askData(protocol.PurposeGetCustomerHistory, "Get history after email update.",
			map[string]any{"customer_id": state.CustomerID})}, nil
	}

	r.dropUnrecognized(msg, state)
	return nil, nil
}

func (r *Router) handleSupportResponse(msg protocol.Message, state *protocol.ConversationState) ([]protocol.Message, error) {
	switch msg.Purpose {
	case protocol.PurposeSupportReply:
		reply, err := payloadString(msg.Payload, "reply")
		if err != nil {
			return nil, fmt.Errorf("router: %s: %w", msg.Purpose, err)
		}
		return []protocol.Message{r.finalResponse(reply)}, nil

	case protocol.PurposeSupportNeedsBillingContext:
		cid := state.CustomerID
		if cid == 0 {
			cid = r.DefaultCustomerID
		}
		return []protocol.Message{r.askData(protocol.PurposeGetCustomerHistory, "Get billing history",
			map[string]any{"customer_id": cid})}, nil

	case protocol.PurposeOpenTicketsResult:
		matches, err := payloadMatches(msg.Payload, "open_tickets")
		if err != nil {
			return nil, fmt.Errorf("router: %s: %w", msg.Purpose, err)
		}
		return []protocol.Message{r.finalResponse(formatMatches(matches,
			"Active customers with open tickets:",
			"There are no active customers with open tickets."))}, nil

	case protocol.PurposeHighPriorityTicketsResult:
		matches, err := payloadMatches(msg.Payload, "high_priority_tickets")
		if err != nil {
			return nil, fmt.Errorf("router: %s: %w", msg.Purpose, err)
		}
		return []protocol.Message{r.finalResponse(formatMatches(matches,
			"High-priority tickets for premium customers:",
			"There are no high-priority tickets for premium customers (all active customers are treated as premium)."))}, nil
	}

	r.dropUnrecognized(msg, state)
	return nil, nil
}

// dropUnrecognized logs an unhandled (sender, purpose) pair. The message
// is dropped without output, matching the tolerated degenerate case; the
// warning keeps routing bugs visible.
func (r *Router) dropUnrecognized(msg protocol.Message, state *protocol.ConversationState) {
	r.Logger.Warn("unrecognized message dropped",
		"conversation", state.ID,
		"sender", msg.Sender,
		"purpose", msg.Purpose,
	)
}

func (r *Router) askData(purpose, content string, payload map[string]any) protocol.Message {
	return protocol.NewMessage(protocol.AgentRouter, protocol.AgentCustomerData, purpose, content, payload)
}

func (r *Router) askSupport(purpose, content string, payload map[string]any) protocol.Message {
	return protocol.NewMessage(protocol.AgentRouter, protocol.AgentSupport, purpose, content, payload)
}

func (r *Router) finalResponse(text string) protocol.Message {
	return protocol.NewMessage(protocol.AgentRouter, protocol.AgentUser, protocol.PurposeFinalResponse, text, nil)
}

// --- response formatting ---

func formatEmailUpdate(cust *protocol.Customer, tickets []protocol.Ticket) string {
	email := "(unknown)"
	if cust != nil {
		email = cust.Email
	}
	lines := []string{fmt.Sprintf("Your email has been updated to: %s.", email)}
	if len(tickets) == 0 {
		lines = append(lines, "You currently have no tickets in your history.")
	} else {
		lines = append(lines, "Here is your ticket history:")
		for _, t := range tickets {
			lines = append(lines, fmt.Sprintf("- Ticket %d: '%s' (status=%s, priority=%s)",
				t.ID, t.Issue, t.Status, t.Priority))
		}
	}
	return strings.Join(lines, "\n")
}

func formatMatches(matches []protocol.TicketMatch, header, emptyText string) string {
	if len(matches) == 0 {
		return emptyText
	}
	lines := []string{header}
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("Customer %d (%s): ticket %d '%s' status=%s priority=%s",
			m.Customer.ID, m.Customer.Name, m.Ticket.ID, m.Ticket.Issue, m.Ticket.Status, m.Ticket.Priority))
	}
	return strings.Join(lines, "\n")
}
