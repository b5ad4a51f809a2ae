// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

// courier-send posts one message or file to a chat and exits. It is
// the scripting face of Courier: pipe it a deploy report, point it at
// a chat, and the message arrives formatted.
//
// The bot token is never taken as a command-line argument (arguments
// leak through /proc and shell history). It is resolved from
// --token-file (with - for stdin), then the COURIER_BOT_TOKEN
// environment variable, then an interactive no-echo prompt when stdin
// is a terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/courier-foundation/courier/botapi"
	"github.com/courier-foundation/courier/lib/redact"
	"github.com/courier-foundation/courier/lib/secret"
	"github.com/courier-foundation/courier/lib/version"
	"github.com/courier-foundation/courier/markup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		chatFlag      string
		textFlag      string
		fileFlag      string
		captionFlag   string
		markdownFlag  bool
		parseModeFlag string
		silentFlag    bool
		tokenFileFlag string
		baseURLFlag   string
		timeoutFlag   time.Duration
	)

	flagSet := pflag.NewFlagSet("courier-send", pflag.ContinueOnError)
	flagSet.StringVar(&chatFlag, "chat", "", "destination: numeric chat ID or @channelusername (required)")
	flagSet.StringVar(&textFlag, "text", "", "message text, or - to read it from stdin")
	flagSet.StringVar(&fileFlag, "file", "", "send this local file as a document instead of a text message")
	flagSet.StringVar(&captionFlag, "caption", "", "caption for --file")
	flagSet.BoolVar(&markdownFlag, "markdown", false, "render the text or caption from Markdown to Bot API HTML")
	flagSet.StringVar(&parseModeFlag, "parse-mode", "", "send raw text with this parse_mode (HTML or MarkdownV2)")
	flagSet.BoolVar(&silentFlag, "silent", false, "deliver without a notification sound")
	flagSet.StringVar(&tokenFileFlag, "token-file", "", "read the bot token from this file, or - for stdin")
	flagSet.StringVar(&baseURLFlag, "base-url", "", "Bot API server root (default https://api.telegram.org)")
	flagSet.DurationVar(&timeoutFlag, "timeout", 30*time.Second, "per-request deadline")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Courier binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("courier-send")
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

	if chatFlag == "" {
		return fmt.Errorf("--chat is required")
	}
	chat, err := parseChat(chatFlag)
	if err != nil {
		return err
	}

	if textFlag == "" && fileFlag == "" {
		return fmt.Errorf("one of --text or --file is required")
	}
	if textFlag != "" && fileFlag != "" {
		return fmt.Errorf("--text and --file are mutually exclusive; use --caption to label a file")
	}
	if markdownFlag && parseModeFlag != "" {
		return fmt.Errorf("--markdown and --parse-mode are mutually exclusive")
	}
	if (textFlag == "-" || captionFlag == "-") && tokenFileFlag == "-" {
		return fmt.Errorf("stdin cannot supply both the token and the text")
	}

	logger := slog.New(redact.NewHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
	slog.SetDefault(logger)

	// The payload text is the message body, or the caption when a file
	// rides along.
	payload := textFlag
	if fileFlag != "" {
		payload = captionFlag
	}
	if payload == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading text from stdin: %w", err)
		}
		payload = strings.TrimRight(string(data), "\n")
	}

	var parseMode botapi.ParseMode
	switch {
	case markdownFlag:
		rendered, err := markup.ToHTML(payload)
		if err != nil {
			return err
		}
		payload = rendered
		parseMode = botapi.ParseModeHTML
	case parseModeFlag != "":
		switch parseModeFlag {
		case string(botapi.ParseModeHTML):
			parseMode = botapi.ParseModeHTML
		case string(botapi.ParseModeMarkdownV2):
			parseMode = botapi.ParseModeMarkdownV2
		default:
			return fmt.Errorf("unknown --parse-mode %q (HTML or MarkdownV2)", parseModeFlag)
		}
	}

	token, err := resolveToken(tokenFileFlag)
	if err != nil {
		return err
	}

	client, err := botapi.NewClient(botapi.ClientConfig{
		BaseURL:     baseURLFlag,
		TokenBuffer: token,
		Logger:      logger,
	})
	if err != nil {
		token.Close()
		return err
	}
	defer client.Close()

	bot := botapi.NewBot(client, botapi.BotConfig{
		RequestTimeout: timeoutFlag,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if fileFlag != "" {
		message, err := bot.SendDocument(ctx, botapi.SendDocumentRequest{
			ChatID:              chat,
			Document:            botapi.FilePath(fileFlag),
			Caption:             payload,
			ParseMode:           parseMode,
			DisableNotification: silentFlag,
		})
		if err != nil {
			return err
		}
		fmt.Printf("sent document as message %d to chat %s\n", message.MessageID, chat)
		return nil
	}

	if payload == "" {
		return fmt.Errorf("message text is empty")
	}
	message, err := bot.SendMessage(ctx, botapi.SendMessageRequest{
		ChatID:              chat,
		Text:                payload,
		ParseMode:           parseMode,
		DisableNotification: silentFlag,
	})
	if err != nil {
		return err
	}
	fmt.Printf("sent message %d to chat %s\n", message.MessageID, chat)
	return nil
}

// parseChat turns the --chat argument into a chat reference: a decimal
// ID (possibly negative, for groups) or an @username.
func parseChat(value string) (botapi.ChatRef, error) {
	if strings.HasPrefix(value, "@") {
		ref := botapi.ChatUsername(value)
		if ref.IsZero() {
			return botapi.ChatRef{}, fmt.Errorf("--chat %q has no username after the @", value)
		}
		return ref, nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id == 0 {
		return botapi.ChatRef{}, fmt.Errorf("--chat %q is neither a numeric chat ID nor an @username", value)
	}
	return botapi.ChatID(id), nil
}

// resolveToken locates the bot token: --token-file, then the
// COURIER_BOT_TOKEN environment variable, then an interactive prompt
// with echo disabled. The token lands in mmap-backed memory either way.
func resolveToken(tokenFile string) (*secret.Buffer, error) {
	if tokenFile != "" {
		return secret.ReadFromPath(tokenFile)
	}
	if env := os.Getenv("COURIER_BOT_TOKEN"); env != "" {
		return secret.NewFromString(env)
	}

	stdinFileDescriptor := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFileDescriptor) {
		return nil, fmt.Errorf("no bot token: pass --token-file or set COURIER_BOT_TOKEN")
	}
	fmt.Fprint(os.Stderr, "Bot token: ")
	tokenBytes, err := term.ReadPassword(stdinFileDescriptor)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}
	if len(tokenBytes) == 0 {
		return nil, fmt.Errorf("token is empty")
	}
	buffer, err := secret.NewFromBytes(tokenBytes)
	if err != nil {
		secret.Zero(tokenBytes)
		return nil, err
	}
	return buffer, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Send one message or file through a Telegram bot.

The token is resolved from --token-file (use - for stdin), then
COURIER_BOT_TOKEN, then an interactive prompt when stdin is a
terminal.

Usage:
  courier-send --chat <id|@username> (--text <text> | --file <path>) [flags]

Examples:
  # Plain text to a private chat
  courier-send --chat 123456789 --text "deploy finished"

  # A Markdown-formatted report from stdin, silently
  report | courier-send --chat @ops-channel --text - --markdown --silent

  # A log file with a caption
  courier-send --chat 123456789 --file build.log --caption "nightly build log"

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
