package store

import (
	"errors"
	"time"

	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// ErrNotFound is returned when no customer matches the requested id.
var ErrNotFound = errors.New("store: customer not found")

// ErrNoFields is returned by UpdateCustomer when none of the supplied
// fields are updatable.
var ErrNoFields = errors.New("store: no valid fields to update")

// Store is the persistence interface for customers and tickets. Every
// operation is atomic on its own; the store may be called from multiple
// conversations at once.
type Store interface {
	// GetCustomer retrieves a customer by id. Returns ErrNotFound when absent.
	GetCustomer(id int64) (*protocol.Customer, error)
	// ListCustomers returns customers with the given status, ordered by id.
	// limit <= 0 means no limit.
	ListCustomers(status string, limit int) ([]protocol.Customer, error)
	// UpdateCustomer applies the given fields (name, email, phone, status)
	// and returns the re-read record. Unknown fields are ignored; if none
	// remain, ErrNoFields is returned.
	UpdateCustomer(id int64, fields map[string]any) (*protocol.Customer, error)
	// CreateTicket opens a new ticket and returns the created row.
	CreateTicket(customerID int64, issue string, priority protocol.TicketPriority) (*protocol.Ticket, error)
	// CustomerHistory returns a customer's tickets, newest first.
	CustomerHistory(customerID int64) ([]protocol.Ticket, error)
	// ListTickets returns tickets with the given status, newest first.
	// Empty status means all tickets; limit <= 0 means no limit.
	ListTickets(status string, limit int) ([]protocol.Ticket, error)
	// OpenTicketsBefore returns open tickets created before the cutoff.
	OpenTicketsBefore(cutoff time.Time) ([]protocol.Ticket, error)
	// SetTicketPriority changes a ticket's priority.
	SetTicketPriority(ticketID int64, priority protocol.TicketPriority) error
}
