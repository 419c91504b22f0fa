package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deskrelay-io/deskrelay/internal/agent"
	apiPkg "github.com/deskrelay-io/deskrelay/internal/api"
	"github.com/deskrelay-io/deskrelay/internal/config"
	"github.com/deskrelay-io/deskrelay/internal/connector"
	slackconn "github.com/deskrelay-io/deskrelay/internal/connector/slack"
	"github.com/deskrelay-io/deskrelay/internal/connector/telegram"
	"github.com/deskrelay-io/deskrelay/internal/logbuf"
	"github.com/deskrelay-io/deskrelay/internal/orchestrator"
	"github.com/deskrelay-io/deskrelay/internal/store"
	"github.com/deskrelay-io/deskrelay/internal/sweep"
	"github.com/deskrelay-io/deskrelay/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logBuf := logbuf.New(2000)
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	// Load config: file if given, env otherwise
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if !*verbose {
		logLevel = parseLevel(cfg.Log.Level)
	}
	logBuf = logbuf.New(cfg.Log.BufferSize)
	jsonHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	logger.Info("deskrelayd starting", "data_dir", cfg.Engine.DataDir)

	// 1. Open the customer store
	if cfg.Engine.DataDir != "" {
		os.MkdirAll(cfg.Engine.DataDir, 0o755)
	}
	dbPath := cfg.Engine.DatabasePath()
	st, err := store.NewSQLite(dbPath)
	if err != nil {
		logger.Error("failed to open store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if cfg.Engine.Seed {
		if err := st.Seed(); err != nil {
			logger.Error("failed to seed store", "error", err)
			os.Exit(1)
		}
	}

	// 2. Build the conversation engine
	router := agent.NewRouter(cfg.Engine.DefaultCustomerID, logger.With("agent", "router"))
	data := agent.NewCustomerData(st, logger.With("agent", "customer_data"))
	support := agent.NewSupport(st, cfg.Engine.DefaultCustomerID, logger.With("agent", "support"))
	engine := orchestrator.New(router, data, support, logger.With("component", "orchestrator"))

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Start the stale-ticket sweep
	sweeper := sweep.New(st, cfg.Sweep.Schedule, time.Duration(cfg.Sweep.MaxAgeHrs)*time.Hour,
		logger.With("component", "sweep"))
	go safeGo(logger, "sweep", func() { sweeper.Start(ctx) })

	// 4. Start connectors
	inbound := func(_ context.Context, msg connector.InboundMessage) (string, error) {
		state := engine.RunQuery(msg.Content)
		if !state.Resolved() {
			return "Sorry, something went wrong while handling your request. Please try again.", nil
		}
		return state.Final, nil
	}

	if cfg.Connectors.Telegram != nil {
		tgConn, err := telegram.New(
			telegram.Config{
				Token:     cfg.Connectors.Telegram.Token,
				AllowFrom: cfg.Connectors.Telegram.AllowFrom,
			},
			inbound,
			logger.With("connector", "telegram"),
		)
		if err != nil {
			logger.Error("failed to init telegram connector", "error", err)
			os.Exit(1)
		}
		go safeGo(logger, "telegram", func() { tgConn.Start(ctx) })
	}

	if cfg.Connectors.Slack != nil {
		slConn, err := slackconn.New(
			slackconn.Config{
				BotToken: cfg.Connectors.Slack.BotToken,
				AppToken: cfg.Connectors.Slack.AppToken,
				Channels: cfg.Connectors.Slack.Channels,
			},
			inbound,
			logger.With("connector", "slack"),
		)
		if err != nil {
			logger.Error("failed to init slack connector", "error", err)
			os.Exit(1)
		}
		go safeGo(logger, "slack", func() { slConn.Start(ctx) })
	}

	// 5. Start API server
	apiSvc := &engineService{engine: engine, store: st}
	apiSrv := apiPkg.NewServer(apiSvc, apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, logger.With("component", "api"), logBuf)

	go safeGo(logger, "api-server", func() { apiSrv.Start(ctx) })

	// 6. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()
	logger.Info("deskrelayd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}

// engineService implements api.Service by combining the orchestrator
// with direct store access.
type engineService struct {
	engine *orchestrator.Orchestrator
	store  store.Store
}

func (s *engineService) RunQuery(utterance string) *protocol.ConversationState {
	return s.engine.RunQuery(utterance)
}

func (s *engineService) GetCustomer(id int64) (*protocol.Customer, error) {
	return s.store.GetCustomer(id)
}

func (s *engineService) ListCustomers(status string, limit int) ([]protocol.Customer, error) {
	return s.store.ListCustomers(status, limit)
}

func (s *engineService) CustomerHistory(customerID int64) ([]protocol.Ticket, error) {
	return s.store.CustomerHistory(customerID)
}

func (s *engineService) ListTickets(status string, limit int) ([]protocol.Ticket, error) {
	return s.store.ListTickets(status, limit)
}

func (s *engineService) CreateTicket(customerID int64, issue string, priority protocol.TicketPriority) (*protocol.Ticket, error) {
	return s.store.CreateTicket(customerID, issue, priority)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
