package protocol

import "time"

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen   TicketStatus = "open"
	TicketClosed TicketStatus = "closed"
)

// TicketPriority is the urgency assigned to a support ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

// Customer is a customer record as stored in the repository.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ticket is a support ticket record.
type Ticket struct {
	ID         int64          `json:"id"`
	CustomerID int64          `json:"customer_id"`
	Issue      string         `json:"issue"`
	Status     TicketStatus   `json:"status"`
	Priority   TicketPriority `json:"priority"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TicketMatch pairs a ticket with its owning customer, used by the
// gather flows that scan ticket histories across customers.
type TicketMatch struct {
	Customer Customer `json:"customer"`
	Ticket   Ticket   `json:"ticket"`
}
