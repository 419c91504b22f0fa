package agent

import (
	"time"

	"github.com/deskrelay-io/deskrelay/internal/store"
	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// fakeStore is an in-memory store.Store for handler tests.
type fakeStore struct {
	customers    map[int64]protocol.Customer
	history      map[int64][]protocol.Ticket
	created      []protocol.Ticket
	nextTicketID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers:    make(map[int64]protocol.Customer),
		history:      make(map[int64][]protocol.Ticket),
		nextTicketID: 100,
	}
}

func (f *fakeStore) addCustomer(id int64, name, email, status string) {
	f.customers[id] = protocol.Customer{ID: id, Name: name, Email: email, Status: status}
}

func (f *fakeStore) addTicket(customerID int64, issue string, status protocol.TicketStatus, priority protocol.TicketPriority) {
	f.nextTicketID++
	f.history[customerID] = append(f.history[customerID], protocol.Ticket{
		ID:         f.nextTicketID,
		CustomerID: customerID,
		Issue:      issue,
		Status:     status,
		Priority:   priority,
		CreatedAt:  time.Now(),
	})
}

func (f *fakeStore) GetCustomer(id int64) (*protocol.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (f *fakeStore) ListCustomers(status string, limit int) ([]protocol.Customer, error) {
	var out []protocol.Customer
	for id := int64(1); id <= 1000; id++ {
		c, ok := f.customers[id]
		if !ok || c.Status != status {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateCustomer(id int64, fields map[string]any) (*protocol.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	applied := false
	if v, ok := fields["email"].(string); ok {
		c.Email = v
		applied = true
	}
	if v, ok := fields["name"].(string); ok {
		c.Name = v
		applied = true
	}
	if v, ok := fields["status"].(string); ok {
		c.Status = v
		applied = true
	}
	if !applied {
		return nil, store.ErrNoFields
	}
	f.customers[id] = c
	return &c, nil
}

func (f *fakeStore) CreateTicket(customerID int64, issue string, priority protocol.TicketPriority) (*protocol.Ticket, error) {
	f.nextTicketID++
	t := protocol.Ticket{
		ID:         f.nextTicketID,
		CustomerID: customerID,
		Issue:      issue,
		Status:     protocol.TicketOpen,
		Priority:   priority,
		CreatedAt:  time.Now(),
	}
	f.created = append(f.created, t)
	f.history[customerID] = append([]protocol.Ticket{t}, f.history[customerID]...)
	return &t, nil
}

func (f *fakeStore) CustomerHistory(customerID int64) ([]protocol.Ticket, error) {
	return f.history[customerID], nil
}

func (f *fakeStore) ListTickets(status string, limit int) ([]protocol.Ticket, error) {
	var out []protocol.Ticket
	for _, ts := range f.history {
		for _, t := range ts {
			if status == "" || string(t.Status) == status {
				out = append(out, t)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) OpenTicketsBefore(cutoff time.Time) ([]protocol.Ticket, error) {
	var out []protocol.Ticket
	for _, ts := range f.history {
		for _, t := range ts {
			if t.Status == protocol.TicketOpen && t.CreatedAt.Before(cutoff) {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) SetTicketPriority(ticketID int64, priority protocol.TicketPriority) error {
	for cid, ts := range f.history {
		for i, t := range ts {
			if t.ID == ticketID {
				f.history[cid][i].Priority = priority
				return nil
			}
		}
	}
	return store.ErrNotFound
}
