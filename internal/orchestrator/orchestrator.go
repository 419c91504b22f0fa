// Package orchestrator owns the conversation dispatch loop: a FIFO
// queue of messages popped one at a time and routed to the agent named
// as receiver, until a message addressed to the user terminates the
// conversation or the iteration budget runs out.
package orchestrator

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/deskrelay-io/deskrelay/internal/agent"
	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

// defaultMaxIterations bounds one conversation's dispatch count. The
// ceiling is a safety valve against routing cycles, not a normal
// outcome: a healthy conversation finishes well under it.
const defaultMaxIterations = 30

// Orchestrator drives conversations through the registered handlers.
// One RunQuery call processes one conversation to completion,
// synchronously; concurrent calls are independent because each gets a
// fresh queue and state.
type Orchestrator struct {
	Handlers      map[protocol.AgentName]agent.Handler
	Logger        *slog.Logger
	MaxIterations int
}

// New wires the router and specialist agents into an orchestrator.
func New(router *agent.Router, data *agent.CustomerData, support *agent.Support, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Handlers: map[protocol.AgentName]agent.Handler{
			protocol.AgentRouter:       router,
			protocol.AgentCustomerData: data,
			protocol.AgentSupport:      support,
		},
		Logger:        logger,
		MaxIterations: defaultMaxIterations,
	}
}

// RunQuery processes one user utterance to completion and returns the
// full conversation state. If the budget is exhausted before a message
// reaches the user, the returned state carries no final response.
func (o *Orchestrator) RunQuery(utterance string) *protocol.ConversationState {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := protocol.NewConversationState(uuid.NewString(), utterance)
	state.AddLog(fmt.Sprintf("=== USER QUERY: %s ===", utterance))

	queue := []protocol.Message{
		protocol.NewMessage(protocol.AgentUser, protocol.AgentRouter, protocol.PurposeUserQuery, utterance, nil),
	}

	maxIter := o.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	for i := 0; i < maxIter && len(queue) > 0; i++ {
		msg := queue[0]
		queue = queue[1:]

		logger.Debug("dispatching message",
			"conversation", state.ID,
			"iteration", i+1,
			"from", msg.Sender,
			"to", msg.Receiver,
			"purpose", msg.Purpose,
		)

		if msg.Receiver == protocol.AgentUser {
			state.Final = msg.Content
			state.AddLog(fmt.Sprintf("FINAL RESPONSE: %s", msg.Content))
			logger.Info("conversation resolved",
				"conversation", state.ID,
				"iterations", i+1,
			)
			return state
		}

		handler, ok := o.Handlers[msg.Receiver]
		if !ok {
			logger.Warn("no handler for receiver, message dropped",
				"conversation", state.ID,
				"receiver", msg.Receiver,
				"purpose", msg.Purpose,
			)
			continue
		}

		out, err := handler.Handle(msg, state)
		if err != nil {
			// Contract violation: fatal for this message, never retried.
			// The transport layer turns an unresolved state into an apology.
			state.AddLog(fmt.Sprintf("Error handling %s: %v", msg.Purpose, err))
			logger.Error("handler failed",
				"conversation", state.ID,
				"receiver", msg.Receiver,
				"purpose", msg.Purpose,
				"error", err,
			)
			continue
		}

		// FIFO: appended at the back in emission order, so fan-out stays
		// breadth-first and reproducible.
		queue = append(queue, out...)
	}

	if len(queue) > 0 {
		logger.Warn("iteration budget exhausted",
			"conversation", state.ID,
			"pending", len(queue),
		)
		state.AddLog("Conversation stopped: iteration budget exhausted.")
	}
	return state
}
