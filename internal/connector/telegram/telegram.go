// Package telegram runs a long-polling Telegram bot that forwards
// customer messages into the conversation engine.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/deskrelay-io/deskrelay/internal/connector"
)

// Config holds Telegram connector configuration.
type Config struct {
	Token     string  // Bot token from @BotFather
	AllowFrom []int64 // Allowed Telegram user IDs (empty = allow all)
}

// Connector implements connector.Connector for Telegram.
type Connector struct {
	bot     *tgbotapi.BotAPI
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// New creates a new Telegram connector.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Connector{
		bot:     bot,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := c.bot.GetUpdatesChan(u)

	c.logger.Info("telegram connector started", "bot", c.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			c.handleUpdate(ctx, update)

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Send delivers a message to a Telegram chat.
func (c *Connector) Send(_ context.Context, msg connector.OutboundMessage) error {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat_id %q: %w", msg.ChatID, err)
	}

	if strings.TrimSpace(msg.Content) == "" {
		c.logger.Warn("skipping empty message", "chat_id", msg.ChatID)
		return nil
	}

	tgMsg := tgbotapi.NewMessage(chatID, msg.Content)
	tgMsg.DisableWebPagePreview = true
	_, err = c.bot.Send(tgMsg)
	return err
}

func (c *Connector) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	userID := msg.From.ID
	chatID := msg.Chat.ID

	// Access control
	if len(c.config.AllowFrom) > 0 && !slices.Contains(c.config.AllowFrom, userID) {
		c.logger.Warn("unauthorized user", "user_id", userID, "username", msg.From.UserName)
		return
	}

	if msg.IsCommand() {
		c.handleCommand(msg)
		return
	}

	text := msg.Text
	if text == "" && msg.Caption != "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	// Typing indicator while the engine works
	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	c.bot.Send(typing)

	inbound := connector.InboundMessage{
		Channel:  "telegram",
		SenderID: strconv.FormatInt(userID, 10),
		ChatID:   strconv.FormatInt(chatID, 10),
		Content:  text,
	}

	reply, err := c.handler(ctx, inbound)
	if err != nil {
		c.logger.Error("inbound handler error",
			"chat_id", chatID,
			"error", err,
		)
		return
	}
	if err := c.Send(ctx, connector.OutboundMessage{ChatID: inbound.ChatID, Content: reply}); err != nil {
		c.logger.Error("telegram send failed", "chat_id", chatID, "error", err)
	}
}

func (c *Connector) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		reply := tgbotapi.NewMessage(chatID,
			"Hi! I'm the support assistant. Ask me about your account, billing, or tickets.")
		c.bot.Send(reply)

	case "help":
		help := strings.Join([]string{
			"Available commands:",
			"/start — Start the bot",
			"/help — Show this help message",
			"",
			"Examples:",
			"Get customer information for ID 5",
			"I want to cancel my subscription, I was charged twice",
			"Show me all active customers who have open tickets",
		}, "\n")
		reply := tgbotapi.NewMessage(chatID, help)
		c.bot.Send(reply)

	default:
		reply := tgbotapi.NewMessage(chatID, "Unknown command. Try /help.")
		c.bot.Send(reply)
	}
}
