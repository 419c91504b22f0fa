package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// Fields UpdateCustomer will accept; everything else is dropped.
var updatableFields = map[string]bool{
	"name":   true,
	"email":  true,
	"phone":  true,
	"status": true,
}

// SQLite implements Store on a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and runs migrations.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: wal: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS customers (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			phone      TEXT NOT NULL DEFAULT '',
			status     TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tickets (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_id INTEGER NOT NULL REFERENCES customers(id),
			issue       TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'open',
			priority    TEXT NOT NULL DEFAULT 'medium',
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_customer ON tickets(customer_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		CREATE INDEX IF NOT EXISTS idx_customers_status ON customers(status);
	`)
	if err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *SQLite) GetCustomer(id int64) (*protocol.Customer, error) {
	row := s.db.QueryRow(`SELECT id, name, email, phone, status, created_at, updated_at FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get customer: %w", err)
	}
	return c, nil
}

func (s *SQLite) ListCustomers(status string, limit int) ([]protocol.Customer, error) {
	query := `SELECT id, name, email, phone, status, created_at, updated_at FROM customers WHERE status = ? ORDER BY id`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query, status)
	if err != nil {
		return nil, fmt.Errorf("store: list customers: %w", err)
	}
	defer rows.Close()

	var customers []protocol.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list customers scan: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (s *SQLite) UpdateCustomer(id int64, fields map[string]any) (*protocol.Customer, error) {
	set := ""
	var args []any
	for _, f := range []string{"name", "email", "phone", "status"} {
		v, ok := fields[f]
		if !ok || !updatableFields[f] {
			continue
		}
		if set != "" {
			set += ", "
		}
		set += f + " = ?"
		args = append(args, v)
	}
	if set == "" {
		return nil, ErrNoFields
	}

	args = append(args, time.Now().UTC().Format(time.RFC3339), id)
	result, err := s.db.Exec(`UPDATE customers SET `+set+`, updated_at = ? WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: update customer: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetCustomer(id)
}

func (s *SQLite) CreateTicket(customerID int64, issue string, priority protocol.TicketPriority) (*protocol.Ticket, error) {
	if priority == "" {
		priority = protocol.PriorityMedium
	}
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(
		`INSERT INTO tickets (customer_id, issue, status, priority, created_at) VALUES (?, ?, 'open', ?, ?)`,
		customerID, issue, string(priority), now,
	)
	if err != nil {
		return nil, fmt.Errorf("store: create ticket: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: create ticket id: %w", err)
	}

	row := s.db.QueryRow(`SELECT id, customer_id, issue, status, priority, created_at FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err != nil {
		return nil, fmt.Errorf("store: create ticket readback: %w", err)
	}
	return t, nil
}

func (s *SQLite) CustomerHistory(customerID int64) ([]protocol.Ticket, error) {
	rows, err := s.db.Query(
		`SELECT id, customer_id, issue, status, priority, created_at FROM tickets WHERE customer_id = ? ORDER BY created_at DESC, id DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: customer history: %w", err)
	}
	defer rows.Close()

	var tickets []protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("store: customer history scan: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (s *SQLite) ListTickets(status string, limit int) ([]protocol.Ticket, error) {
	query := `SELECT id, customer_id, issue, status, priority, created_at FROM tickets`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list tickets scan: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (s *SQLite) OpenTicketsBefore(cutoff time.Time) ([]protocol.Ticket, error) {
	rows, err := s.db.Query(
		`SELECT id, customer_id, issue, status, priority, created_at FROM tickets WHERE status = 'open' AND created_at < ? ORDER BY created_at`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("store: open tickets before: %w", err)
	}
	defer rows.Close()

	var tickets []protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("store: open tickets scan: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (s *SQLite) SetTicketPriority(ticketID int64, priority protocol.TicketPriority) error {
	result, err := s.db.Exec(`UPDATE tickets SET priority = ? WHERE id = ?`, string(priority), ticketID)
	if err != nil {
		return fmt.Errorf("store: set ticket priority: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("store: ticket %d not found", ticketID)
	}
	return nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLite) DB() *sql.DB {
	return s.db
}

// --- helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanCustomer(row scannable) (*protocol.Customer, error) {
	var c protocol.Customer
	var createdAt, updatedAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

func scanTicket(row scannable) (*protocol.Ticket, error) {
	var t protocol.Ticket
	var status, priority, createdAt string
	if err := row.Scan(&t.ID, &t.CustomerID, &t.Issue, &status, &priority, &createdAt); err != nil {
		return nil, err
	}
	t.Status = protocol.TicketStatus(status)
	t.Priority = protocol.TicketPriority(priority)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}
