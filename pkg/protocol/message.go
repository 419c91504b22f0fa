package protocol

import "fmt"

// Purposes requested of the customer_data agent.
const (
	PurposeGetCustomerInfo    = "get_customer_info"
	PurposeGetCustomerHistory = "get_customer_history"
	PurposeListCustomers      = "list_customers"
	PurposeUpdateCustomer     = "update_customer"
	PurposeCreateTicket       = "create_ticket"
)

// Purposes requested of the support agent.
const (
	PurposeHandleSupportRequest      = "handle_support_request"
	PurposeNegotiateCancelBilling    = "negotiate_cancel_billing"
	PurposeHandleBillingAndCancel    = "handle_billing_and_cancel"
	PurposeGatherOpenTickets         = "gather_open_tickets"
	PurposeGatherHighPriorityTickets = "gather_high_priority_tickets"
	PurposeHandleBillingEscalation   = "handle_billing_escalation"
)

// Result purposes reported back to the router.
const (
	PurposeCustomerInfoResult         = "customer_info_result"
	PurposeCustomerHistoryResult      = "customer_history_result"
	PurposeCustomersListResult        = "customers_list_result"
	PurposeCustomerUpdateResult       = "customer_update_result"
	PurposeTicketCreateResult         = "ticket_create_result"
	PurposeSupportReply               = "support_reply"
	PurposeSupportNeedsBillingContext = "support_needs_billing_context"
	PurposeOpenTicketsResult          = "open_tickets_result"
	PurposeHighPriorityTicketsResult  = "high_priority_tickets_result"
)

// Conversation entry and exit purposes.
const (
	PurposeUserQuery     = "user_query"
	PurposeFinalResponse = "final_response"
)

// Message is the envelope passed between agents. A message is fully
// determined at creation and never mutated in flight; handlers produce
// new messages instead of editing the one they received.
type Message struct {
	Sender   AgentName      `json:"sender"`
	Receiver AgentName      `json:"receiver"`
	Purpose  string         `json:"purpose"`
	Content  string         `json:"content"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// NewMessage builds a message. The payload map is copied so the caller
// cannot mutate the envelope after creation.
func NewMessage(sender, receiver AgentName, purpose, content string, payload map[string]any) Message {
	var p map[string]any
	if len(payload) > 0 {
		p = make(map[string]any, len(payload))
		for k, v := range payload {
			p[k] = v
		}
	}
	return Message{
		Sender:   sender,
		Receiver: receiver,
		Purpose:  purpose,
		Content:  content,
		Payload:  p,
	}
}

func (m Message) String() string {
	return fmt.Sprintf("[%s->%s] (%s) %s", m.Sender, m.Receiver, m.Purpose, m.Content)
}
