package store

import (
	"fmt"
	"time"

	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

type seedCustomer struct {
	id     int64
	name   string
	email  string
	phone  string
	status string
}

type seedTicket struct {
	customerID int64
	issue      string
	status     protocol.TicketStatus
	priority   protocol.TicketPriority
	age        time.Duration // how long before now the ticket was created
}

var seedCustomers = []seedCustomer{
	{1, "Alice Johnson", "alice.johnson@example.com", "+1-555-0101", "active"},
	{2, "Bob Smith", "bob.smith@example.com", "+1-555-0102", "active"},
	{3, "Carol Davis", "carol.davis@example.com", "+1-555-0103", "inactive"},
	{4, "David Lee", "david.lee@example.com", "+1-555-0104", "active"},
	{5, "Emma Wilson", "emma.wilson@example.com", "+1-555-0105", "active"},
}

var seedTickets = []seedTicket{
	{1, "Cannot log in to account", protocol.TicketOpen, protocol.PriorityMedium, 96 * time.Hour},
	{2, "Billing discrepancy on last invoice", protocol.TicketOpen, protocol.PriorityHigh, 72 * time.Hour},
	{3, "Question about data export", protocol.TicketClosed, protocol.PriorityLow, 240 * time.Hour},
	{4, "Feature request: bulk import", protocol.TicketClosed, protocol.PriorityLow, 120 * time.Hour},
	{5, "Double charge on subscription", protocol.TicketClosed, protocol.PriorityHigh, 48 * time.Hour},
	{5, "Password reset not working", protocol.TicketOpen, protocol.PriorityMedium, 24 * time.Hour},
}

// Seed inserts the sample customers and tickets into an empty database.
// A database that already holds customers is left untouched.
func (s *SQLite) Seed() error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return fmt.Errorf("store: seed count: %w", err)
	}
	if n > 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, c := range seedCustomers {
		ts := now.Add(-30 * 24 * time.Hour).Format(time.RFC3339)
		_, err := s.db.Exec(
			`INSERT INTO customers (id, name, email, phone, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.id, c.name, c.email, c.phone, c.status, ts, ts,
		)
		if err != nil {
			return fmt.Errorf("store: seed customer %d: %w", c.id, err)
		}
	}
	for _, t := range seedTickets {
		_, err := s.db.Exec(
			`INSERT INTO tickets (customer_id, issue, status, priority, created_at) VALUES (?, ?, ?, ?, ?)`,
			t.customerID, t.issue, string(t.status), string(t.priority), now.Add(-t.age).Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("store: seed ticket for customer %d: %w", t.customerID, err)
		}
	}
	return nil
}
