package protocol

import "slices"

// Intent is a classification tag inferred from the user's utterance.
// A single utterance may carry several intents at once.
type Intent string

const (
	IntentGetCustomerInfo       Intent = "get_customer_info"
	IntentUpgradeAccount        Intent = "upgrade_account"
	IntentCancelSubscription    Intent = "cancel_subscription"
	IntentBillingIssue          Intent = "billing_issue"
	IntentActiveWithOpenTickets Intent = "active_with_open_tickets"
	IntentHighPriorityPremium   Intent = "high_priority_premium_tickets"
	IntentUpdateEmail           Intent = "update_email"
	IntentTicketHistory         Intent = "ticket_history"
)

// ConversationState is the mutable record threaded through one
// conversation. CustomerID and Customer persist once set unless a
// customer_update_result explicitly overwrites them. The state is
// created per run and discarded when the dispatch loop terminates.
type ConversationState struct {
	ID         string    `json:"conversation_id"`
	UserQuery  string    `json:"user_query"`
	Intents    []Intent  `json:"inferred_intents"`
	CustomerID int64     `json:"customer_id,omitempty"`
	Customer   *Customer `json:"customer_record,omitempty"`
	Tickets    []Ticket  `json:"tickets,omitempty"`
	Final      string    `json:"final_response,omitempty"`
	Log        []string  `json:"log"`
}

// NewConversationState creates the state for a fresh conversation.
func NewConversationState(id, query string) *ConversationState {
	return &ConversationState{ID: id, UserQuery: query}
}

// AddLog appends a line to the conversation's human-readable log.
func (s *ConversationState) AddLog(text string) {
	s.Log = append(s.Log, text)
}

// HasIntent reports whether the given tag was inferred for this conversation.
func (s *ConversationState) HasIntent(i Intent) bool {
	return slices.Contains(s.Intents, i)
}

// Resolved reports whether the conversation produced a final user-facing
// response. False after budget exhaustion.
func (s *ConversationState) Resolved() bool {
	return s.Final != ""
}
