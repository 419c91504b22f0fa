package slackconn

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/deskrelay-io/deskrelay/internal/connector"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Verify Connector implements connector.Connector at compile time.
var _ connector.Connector = (*Connector)(nil)

func TestStripMention(t *testing.T) {
	tests := []struct {
		input string
		botID string
		want  string
	}{
		{"<@U123> hello", "U123", "hello"},
		{"hey <@U123> there", "U123", "hey  there"},
		{"no mention here", "U123", "no mention here"},
		{"<@U999> hello", "U123", "<@U999> hello"},
	}

	for _, tt := range tests {
		got := StripMention(tt.input, tt.botID)
		if got != tt.want {
			t.Errorf("StripMention(%q, %q) = %q, want %q", tt.input, tt.botID, got, tt.want)
		}
	}
}

func TestIsAllowedChannel(t *testing.T) {
	c := &Connector{config: Config{Channels: []string{"C001", "C002"}}}

	if !c.isAllowedChannel("C001") {
		t.Error("C001 should be allowed")
	}
	if c.isAllowedChannel("C999") {
		t.Error("C999 should not be allowed")
	}
}

func TestIsAllowedChannel_Empty(t *testing.T) {
	c := &Connector{config: Config{}}

	if !c.isAllowedChannel("anything") {
		t.Error("empty channels list should allow all")
	}
}

func TestDispatchSkipsReplyOnError(t *testing.T) {
	// A failing handler must not attempt a send; with a nil api client a
	// send attempt would panic.
	called := false
	c := &Connector{
		handler: func(ctx context.Context, msg connector.InboundMessage) (string, error) {
			called = true
			return "", context.Canceled
		},
	}
	c.logger = discardLogger()
	c.dispatch(context.Background(), "U1", "C1", "hello")
	if !called {
		t.Error("handler not invoked")
	}
}

func TestConnectorName(t *testing.T) {
	c := &Connector{}
	if c.Name() != "slack" {
		t.Errorf("Name() = %q", c.Name())
	}
}
