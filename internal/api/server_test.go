package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deskrelay-io/deskrelay/internal/store"
	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// mockService implements Service for testing.
type mockService struct {
	customers []protocol.Customer
	history   map[int64][]protocol.Ticket
	created   []protocol.Ticket
	resolved  bool
	final     string
}

func (m *mockService) RunQuery(utterance string) *protocol.ConversationState {
	state := protocol.NewConversationState("conv-1", utterance)
	state.AddLog("=== USER QUERY: " + utterance + " ===")
	if m.resolved {
		state.Final = m.final
	}
	return state
}

func (m *mockService) GetCustomer(id int64) (*protocol.Customer, error) {
	for _, c := range m.customers {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockService) ListCustomers(status string, limit int) ([]protocol.Customer, error) {
	var out []protocol.Customer
	for _, c := range m.customers {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockService) CustomerHistory(customerID int64) ([]protocol.Ticket, error) {
	return m.history[customerID], nil
}

func (m *mockService) ListTickets(status string, limit int) ([]protocol.Ticket, error) {
	var out []protocol.Ticket
	for _, ts := range m.history {
		for _, t := range ts {
			if status == "" || string(t.Status) == status {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (m *mockService) CreateTicket(customerID int64, issue string, priority protocol.TicketPriority) (*protocol.Ticket, error) {
	t := protocol.Ticket{ID: int64(len(m.created) + 1), CustomerID: customerID, Issue: issue, Status: protocol.TicketOpen, Priority: priority}
	m.created = append(m.created, t)
	return &t, nil
}

func newTestServer(svc Service, key string) *Server {
	return NewServer(svc, Config{Host: "127.0.0.1", Port: 0, Key: key}, nil, nil)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&mockService{}, "")
	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestQuery(t *testing.T) {
	svc := &mockService{resolved: true, final: "Customer 5 is Emma Wilson (emma.wilson@example.com). Status: active."}
	srv := newTestServer(svc, "")
	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"query":"Get customer information for ID 5"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp queryResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Resolved || !strings.Contains(resp.Response, "Emma Wilson") {
		t.Errorf("resp = %+v", resp)
	}
	if resp.ConversationID == "" {
		t.Error("missing conversation id")
	}
}

func TestQuery_UnresolvedGetsApology(t *testing.T) {
	srv := newTestServer(&mockService{resolved: false}, "")
	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"query":"loop forever"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp queryResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Resolved {
		t.Error("resolved = true")
	}
	if resp.Response != apologyResponse {
		t.Errorf("response = %q", resp.Response)
	}
}

func TestQuery_EmptyBody(t *testing.T) {
	srv := newTestServer(&mockService{}, "")
	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{"query":"  "}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestQuery_Trace(t *testing.T) {
	svc := &mockService{resolved: true, final: "done"}
	srv := newTestServer(svc, "")
	req := httptest.NewRequest("POST", "/api/query?trace=true", strings.NewReader(`{"query":"hi"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var resp queryResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Log) == 0 {
		t.Error("expected conversation log in trace mode")
	}
}

func TestListCustomers(t *testing.T) {
	svc := &mockService{customers: []protocol.Customer{
		{ID: 1, Name: "Alice Johnson", Status: "active"},
		{ID: 3, Name: "Carol Davis", Status: "inactive"},
	}}
	srv := newTestServer(svc, "")
	req := httptest.NewRequest("GET", "/api/customers", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var customers []protocol.Customer
	json.NewDecoder(w.Body).Decode(&customers)
	if len(customers) != 1 || customers[0].Name != "Alice Johnson" {
		t.Errorf("customers = %v", customers)
	}
}

func TestGetCustomer(t *testing.T) {
	svc := &mockService{customers: []protocol.Customer{{ID: 5, Name: "Emma Wilson", Status: "active"}}}
	srv := newTestServer(svc, "")
	req := httptest.NewRequest("GET", "/api/customers/5", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var cust protocol.Customer
	json.NewDecoder(w.Body).Decode(&cust)
	if cust.Name != "Emma Wilson" {
		t.Errorf("customer = %+v", cust)
	}
}

func TestGetCustomer_NotFound(t *testing.T) {
	srv := newTestServer(&mockService{}, "")
	req := httptest.NewRequest("GET", "/api/customers/999", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetCustomer_BadID(t *testing.T) {
	srv := newTestServer(&mockService{}, "")
	req := httptest.NewRequest("GET", "/api/customers/abc", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCustomerHistory(t *testing.T) {
	svc := &mockService{history: map[int64][]protocol.Ticket{
		5: {{ID: 6, CustomerID: 5, Issue: "Password reset not working"}},
	}}
	srv := newTestServer(svc, "")
	req := httptest.NewRequest("GET", "/api/customers/5/history", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var tickets []protocol.Ticket
	json.NewDecoder(w.Body).Decode(&tickets)
	if len(tickets) != 1 {
		t.Errorf("tickets = %v", tickets)
	}
}

func TestCustomerHistory_EmptyIsArray(t *testing.T) {
	srv := newTestServer(&mockService{}, "")
	req := httptest.NewRequest("GET", "/api/customers/5/history", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestListTickets(t *testing.T) {
	svc := &mockService{history: map[int64][]protocol.Ticket{
		1: {{ID: 1, CustomerID: 1, Issue: "Cannot log in to account", Status: protocol.TicketOpen}},
		3: {{ID: 3, CustomerID: 3, Issue: "Feature question", Status: protocol.TicketClosed}},
	}}
	srv := newTestServer(svc, "")
	req := httptest.NewRequest("GET", "/api/tickets?status=open", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var tickets []protocol.Ticket
	json.NewDecoder(w.Body).Decode(&tickets)
	if len(tickets) != 1 || tickets[0].Status != protocol.TicketOpen {
		t.Errorf("tickets = %v", tickets)
	}
}

func TestCreateTicket(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(svc, "")
	body := `{"customer_id":2,"issue":"Charged twice this month","priority":"high"}`
	req := httptest.NewRequest("POST", "/api/tickets", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if len(svc.created) != 1 || svc.created[0].Priority != protocol.PriorityHigh {
		t.Errorf("created = %v", svc.created)
	}
}

func TestCreateTicket_DefaultPriority(t *testing.T) {
	svc := &mockService{}
	srv := newTestServer(svc, "")
	body := `{"customer_id":2,"issue":"Cannot log in"}`
	req := httptest.NewRequest("POST", "/api/tickets", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if svc.created[0].Priority != protocol.PriorityMedium {
		t.Errorf("priority = %q", svc.created[0].Priority)
	}
}

func TestCreateTicket_MissingIssue(t *testing.T) {
	srv := newTestServer(&mockService{}, "")
	body := `{"customer_id":2,"issue":""}`
	req := httptest.NewRequest("POST", "/api/tickets", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuth_Required(t *testing.T) {
	srv := newTestServer(&mockService{}, "secret-key")

	// No auth header
	req := httptest.NewRequest("GET", "/api/customers", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("no auth: status = %d, want 401", w.Code)
	}

	// Wrong key
	req = httptest.NewRequest("GET", "/api/customers", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", w.Code)
	}

	// Correct key
	req = httptest.NewRequest("GET", "/api/customers", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("correct key: status = %d, want 200", w.Code)
	}
}

func TestHealth_NoAuth(t *testing.T) {
	srv := newTestServer(&mockService{}, "secret-key")
	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	// Health should NOT require auth
	if w.Code != http.StatusOK {
		t.Errorf("health should not require auth, status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(&mockService{}, "")
	req := httptest.NewRequest("OPTIONS", "/api/customers", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}
}
