// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// courier-echo is a long-polling responder bot. It matches inbound
// messages against a JSONC rule file and replies from templates,
// acknowledges callback queries, and checkpoints the update offset
// after every processed update so a restart resumes where it left off.
//
// Configuration layers: a .env file in the working directory (loaded
// best-effort, useful for COURIER_BOT_TOKEN during development), the
// YAML config from --config or COURIER_CONFIG (lib/config defaults
// apply when absent), and the rule file from --rules.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/courier-foundation/courier/botapi"
	"github.com/courier-foundation/courier/lib/config"
	"github.com/courier-foundation/courier/lib/cursor"
	"github.com/courier-foundation/courier/lib/redact"
	"github.com/courier-foundation/courier/lib/secret"
	"github.com/courier-foundation/courier/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFlag    string
		rulesFlag     string
		tokenFileFlag string
		dryRunFlag    bool
	)

	flagSet := pflag.NewFlagSet("courier-echo", pflag.ContinueOnError)
	flagSet.StringVar(&configFlag, "config", "", "YAML config path (default: $COURIER_CONFIG, then built-in defaults)")
	flagSet.StringVar(&rulesFlag, "rules", "rules.jsonc", "JSONC reply rule file")
	flagSet.StringVar(&tokenFileFlag, "token-file", "", "read the bot token from this file, or - for stdin")
	flagSet.BoolVar(&dryRunFlag, "dry-run", false, "validate config and rules, then exit")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Courier binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("courier-echo")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	// .env before config so COURIER_CONFIG and COURIER_BOT_TOKEN set
	// there are visible below. A missing .env is the normal case.
	_ = godotenv.Load()

	var cfg *config.Config
	var err error
	if configFlag != "" {
		cfg, err = config.LoadFile(configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	rules, err := loadRules(rulesFlag)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	if dryRunFlag {
		fmt.Printf("config valid, %d rules compiled from %s\n", len(rules.rules), rulesFlag)
		return nil
	}

	token, err := resolveToken(tokenFileFlag)
	if err != nil {
		return err
	}

	client, err := botapi.NewClient(botapi.ClientConfig{
		BaseURL:     cfg.API.BaseURL,
		TokenBuffer: token,
		Logger:      logger,
	})
	if err != nil {
		token.Close()
		return err
	}
	defer client.Close()

	bot := botapi.NewBot(client, botapi.BotConfig{
		RequestTimeout: cfg.RequestTimeout(),
		Throttle: botapi.NewThrottle(botapi.ThrottleConfig{
			GlobalPerSecond:  cfg.Rate.GlobalPerSecond,
			PerChatPerSecond: cfg.Rate.PerChatPerSecond,
		}),
		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	me, err := bot.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("validating token: %w", err)
	}
	botName := me.FirstName
	if me.Username != nil {
		botName = "@" + *me.Username
	}
	logger.Info("authenticated", "bot", botName, "id", me.ID)

	// A leftover webhook registration blocks getUpdates with a 409.
	// Clearing it is idempotent and keeps pending updates queued.
	if err := bot.DeleteWebhook(ctx, false); err != nil {
		return fmt.Errorf("clearing webhook: %w", err)
	}

	store := cursor.NewStore(cfg.Poll.CursorFile)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0700); err != nil {
		return fmt.Errorf("creating cursor directory: %w", err)
	}
	checkpoint, err := store.Load()
	if err != nil {
		return err
	}
	if checkpoint.Offset > 0 {
		logger.Info("resuming from checkpoint",
			"offset", checkpoint.Offset,
			"saved_at", checkpoint.SavedAt,
			"path", store.Path(),
		)
	}

	poller, err := botapi.NewPoller(botapi.PollerConfig{
		Source:         bot,
		Offset:         checkpoint.Offset,
		Limit:          cfg.Poll.Limit,
		Timeout:        time.Duration(cfg.Poll.TimeoutSeconds) * time.Second,
		AllowedUpdates: cfg.Poll.AllowedUpdates,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	runResult := make(chan error, 1)
	go func() {
		runResult <- poller.Run(ctx)
	}()

	for update := range poller.Updates() {
		handleUpdate(ctx, bot, rules, update, logger)
		saveCheckpoint(store, poller.Offset(), logger)
	}

	if err := <-runResult; err != nil {
		return fmt.Errorf("polling halted: %w", err)
	}
	logger.Info("shut down cleanly", "offset", poller.Offset())
	return nil
}

// handleUpdate reacts to one update. Failures are logged, not fatal:
// one undeliverable reply must not stop the bot.
func handleUpdate(ctx context.Context, bot *botapi.Bot, rules *ruleSet, update botapi.Update, logger *slog.Logger) {
	switch update.Type {
	case botapi.UpdateMessage:
		message := update.Message
		reply, mode, matched, ok := rules.replyTo(message)
		if !ok {
			logger.Debug("no rule matched", "update_id", update.ID, "chat_id", message.Chat.ID)
			return
		}
		sent, err := bot.SendMessage(ctx, botapi.SendMessageRequest{
			ChatID:           botapi.ChatID(message.Chat.ID),
			Text:             reply,
			ParseMode:        mode,
			ReplyToMessageID: message.MessageID,
		})
		if err != nil {
			logger.Error("reply failed",
				"update_id", update.ID,
				"chat_id", message.Chat.ID,
				"rule", matched,
				"error", err,
			)
			return
		}
		logger.Info("replied",
			"update_id", update.ID,
			"chat_id", message.Chat.ID,
			"rule", matched,
			"message_id", sent.MessageID,
		)

	case botapi.UpdateCallbackQuery:
		// Unanswered callback queries leave the user's client showing a
		// spinner until it times out.
		err := bot.AnswerCallbackQuery(ctx, botapi.AnswerCallbackQueryRequest{
			CallbackQueryID: update.CallbackQuery.ID,
		})
		if err != nil {
			logger.Error("callback acknowledgement failed", "update_id", update.ID, "error", err)
			return
		}
		logger.Info("acknowledged callback", "update_id", update.ID)

	default:
		logger.Debug("ignoring update", "update_id", update.ID, "type", string(update.Type))
	}
}

// saveCheckpoint persists the poll offset. A failed save is logged and
// tolerated: the bot keeps running and retries on the next update, at
// the cost of possible re-delivery after a crash.
func saveCheckpoint(store *cursor.Store, offset int64, logger *slog.Logger) {
	err := store.Save(cursor.Cursor{Offset: offset, SavedAt: time.Now()})
	if err != nil {
		logger.Warn("checkpoint save failed", "path", store.Path(), "offset", offset, "error", err)
	}
}

// resolveToken locates the bot token: --token-file, then the
// COURIER_BOT_TOKEN environment variable. Unlike courier-send there is
// no interactive prompt; a responder bot runs unattended.
func resolveToken(tokenFile string) (*secret.Buffer, error) {
	if tokenFile != "" {
		return secret.ReadFromPath(tokenFile)
	}
	if env := os.Getenv("COURIER_BOT_TOKEN"); env != "" {
		return secret.NewFromString(env)
	}
	return nil, errors.New("no bot token: pass --token-file or set COURIER_BOT_TOKEN (a .env file works)")
}

// buildLogger constructs the slog logger per the config's log section,
// wrapped in the redaction handler so request URLs in error messages
// cannot leak the token.
func buildLogger(cfg *config.Config) *slog.Logger {
	options := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	switch cfg.Log.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, options)
	default:
		handler = slog.NewTextHandler(os.Stderr, options)
	}
	return slog.New(redact.NewHandler(handler))
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Long-polling responder bot driven by a JSONC rule file.

Each inbound text message is matched against the rules in order
(prefix, substring, or regular expression); the first match wins and
its template is expanded and sent as a reply. Callback queries are
acknowledged. The update offset is checkpointed after every processed
update, so restarting the bot never replays handled messages.

The token comes from --token-file (use - for stdin) or
COURIER_BOT_TOKEN; a .env file in the working directory is loaded
first. YAML configuration comes from --config or COURIER_CONFIG.

Usage:
  courier-echo [flags]

Examples:
  # Run with defaults: ./rules.jsonc, token from the environment
  COURIER_BOT_TOKEN=123:abc courier-echo

  # Validate config and rules without connecting
  courier-echo --config courier.yaml --rules replies.jsonc --dry-run

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
