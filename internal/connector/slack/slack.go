// Package slackconn runs a Socket Mode Slack bot that forwards
// customer messages into the conversation engine.
package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/deskrelay-io/deskrelay/internal/connector"
)

// Config holds Slack connector configuration.
type Config struct {
	BotToken string   // xoxb-... Bot User OAuth Token
	AppToken string   // xapp-... App-Level Token (for Socket Mode)
	Channels []string // Optional: only respond in these channels (empty = all)
}

// Connector implements connector.Connector for Slack via Socket Mode.
type Connector struct {
	api     *slack.Client
	socket  *socketmode.Client
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
	botID   string
}

// New creates a new Slack connector.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot_token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack: app_token is required (Socket Mode)")
	}

	if logger == nil {
		logger = slog.Default()
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))

	// Test auth and get bot user ID
	authResp, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}

	logger.Info("slack bot authorized", "user", authResp.User, "team", authResp.Team)

	socket := socketmode.New(api)

	return &Connector{
		api:     api,
		socket:  socket,
		config:  cfg,
		handler: handler,
		logger:  logger,
		botID:   authResp.UserID,
	}, nil
}

func (c *Connector) Name() string { return "slack" }

// Start begins listening for events via Socket Mode. Blocks until context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.handleEvents(ctx)

	c.logger.Info("slack connector started (socket mode)")
	return c.socket.RunContext(ctx)
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers a message to a Slack channel. ChatID may carry a
// thread suffix ("channel:thread_ts") for threaded replies.
func (c *Connector) Send(_ context.Context, msg connector.OutboundMessage) error {
	channel, threadTS, _ := strings.Cut(msg.ChatID, ":")

	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Content, false),
	}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, _, err := c.api.PostMessage(channel, opts...)
	if err != nil {
		return fmt.Errorf("slack: send message: %w", err)
	}
	return nil
}

func (c *Connector) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.socket.Events:
			switch event.Type {
			case socketmode.EventTypeEventsAPI:
				c.handleEventsAPI(ctx, event)
			case socketmode.EventTypeSlashCommand:
				c.handleSlashCommand(ctx, event)
			}
		}
	}
}

func (c *Connector) handleEventsAPI(ctx context.Context, event socketmode.Event) {
	eventsAPIEvent, ok := event.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}

	c.socket.Ack(*event.Request)

	switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		c.handleMessage(ctx, ev)
	case *slackevents.AppMentionEvent:
		c.handleMention(ctx, ev)
	}
}

func (c *Connector) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore bot messages (including our own)
	if ev.BotID != "" || ev.User == "" || ev.User == c.botID {
		return
	}
	// Ignore message subtypes (edits, deletes, etc.)
	if ev.SubType != "" {
		return
	}

	if !c.isAllowedChannel(ev.Channel) {
		return
	}

	text := ev.Text
	if text == "" {
		return
	}

	// Use thread_ts as chat ID for thread grouping, fall back to channel
	chatID := ev.Channel
	if ev.ThreadTimeStamp != "" {
		chatID = ev.Channel + ":" + ev.ThreadTimeStamp
	}

	c.dispatch(ctx, ev.User, chatID, text)
}

func (c *Connector) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.User == c.botID {
		return
	}

	text := StripMention(ev.Text, c.botID)
	if text == "" {
		return
	}

	chatID := ev.Channel
	if ev.ThreadTimeStamp != "" {
		chatID = ev.Channel + ":" + ev.ThreadTimeStamp
	}

	c.dispatch(ctx, ev.User, chatID, text)
}

func (c *Connector) handleSlashCommand(ctx context.Context, event socketmode.Event) {
	cmd, ok := event.Data.(slack.SlashCommand)
	if !ok {
		return
	}

	c.socket.Ack(*event.Request)

	text := cmd.Text
	if text == "" {
		return
	}

	c.dispatch(ctx, cmd.UserID, cmd.ChannelID, text)
}

// dispatch runs the inbound handler and posts its reply back.
func (c *Connector) dispatch(ctx context.Context, userID, chatID, text string) {
	inbound := connector.InboundMessage{
		Channel:  "slack",
		SenderID: userID,
		ChatID:   chatID,
		Content:  text,
	}

	reply, err := c.handler(ctx, inbound)
	if err != nil {
		c.logger.Error("slack inbound handler error",
			"chat_id", chatID,
			"user", userID,
			"error", err,
		)
		return
	}
	if err := c.Send(ctx, connector.OutboundMessage{ChatID: chatID, Content: reply}); err != nil {
		c.logger.Error("slack send failed", "chat_id", chatID, "error", err)
	}
}

func (c *Connector) isAllowedChannel(channel string) bool {
	return len(c.config.Channels) == 0 || slices.Contains(c.config.Channels, channel)
}

// StripMention removes the <@BOTID> mention from message text.
func StripMention(text, botID string) string {
	mention := fmt.Sprintf("<@%s>", botID)
	text = strings.Replace(text, mention, "", 1)
	return strings.TrimSpace(text)
}
