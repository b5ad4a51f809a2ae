// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"
)

// BotConfig holds configuration for creating a Bot.
type BotConfig struct {
	// RequestTimeout bounds each non-polling call. Zero means 30
	// seconds. GetUpdates derives its own deadline from the long-poll
	// hold instead.
	RequestTimeout time.Duration
	// TransferTimeout bounds uploads and downloads, which legitimately
	// outlast RequestTimeout. Zero means 5 minutes.
	TransferTimeout time.Duration
	// Throttle paces send-class calls. Nil disables client-side
	// pacing.
	Throttle *Throttle
	// UploadCache reuses server file_ids for repeated content. Nil
	// disables reuse.
	UploadCache *UploadCache
	// Logger is used for structured logging. If nil, the Client's
	// logger is used.
	Logger *slog.Logger
}

// Bot is the method façade: one typed method per API call, each
// composing encode, invoke, and decode. Safe for concurrent use;
// sending while a Poller runs on the same Bot requires no locking.
type Bot struct {
	client          *Client
	requestTimeout  time.Duration
	transferTimeout time.Duration
	throttle        *Throttle
	uploads         *UploadCache
	logger          *slog.Logger
}

// NewBot creates a Bot on an existing Client.
func NewBot(client *Client, config BotConfig) *Bot {
	requestTimeout := config.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}
	transferTimeout := config.TransferTimeout
	if transferTimeout == 0 {
		transferTimeout = 5 * time.Minute
	}
	logger := config.Logger
	if logger == nil {
		logger = client.logger
	}
	return &Bot{
		client:          client,
		requestTimeout:  requestTimeout,
		transferTimeout: transferTimeout,
		throttle:        config.Throttle,
		uploads:         config.UploadCache,
		logger:          logger,
	}
}

// pollMargin is how much the local getUpdates deadline exceeds the
// server-side hold. Without the margin a healthy long poll that runs
// its full course would be reported as a local timeout.
const pollMargin = 10 * time.Second

// CloseIdleConnections drops idle HTTP connections. The Poller calls
// this on its source after a transport error so the next attempt does
// not reuse a connection the server has silently dropped.
func (b *Bot) CloseIdleConnections() {
	b.client.CloseIdleConnections()
}

func (b *Bot) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.requestTimeout)
}

func (b *Bot) throttleWait(ctx context.Context, chat ChatRef) error {
	if b.throttle == nil {
		return nil
	}
	return b.throttle.Wait(ctx, chat)
}

// GetMe returns the bot's own account. The cheapest way to validate a
// token.
func (b *Bot) GetMe(ctx context.Context) (*User, error) {
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	result, err := b.client.invokeMethod(ctx, "getMe", nil)
	if err != nil {
		return nil, fmt.Errorf("botapi: getMe failed: %w", err)
	}

	var user User
	if err := json.Unmarshal(result, &user); err != nil {
		return nil, fmt.Errorf("botapi: getMe failed: %w", &DecodingError{Snippet: bodySnippet(result), Err: err})
	}
	return &user, nil
}

// GetUpdates fetches the next batch of updates. With a non-zero
// request Timeout the server holds the connection until updates arrive
// or the hold elapses; the local deadline is the hold plus a margin so
// a full-length healthy poll is not mistaken for a network timeout.
//
// One malformed update in the batch degrades to UpdateUnknown rather
// than failing the batch.
func (b *Bot) GetUpdates(ctx context.Context, request GetUpdatesRequest) ([]Update, error) {
	values, err := request.encode()
	if err != nil {
		return nil, fmt.Errorf("botapi: getUpdates failed: %w", err)
	}

	timeout := b.requestTimeout
	if request.Timeout > 0 {
		timeout = time.Duration(request.Timeout)*time.Second + pollMargin
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := b.client.invokeMethod(ctx, "getUpdates", values)
	if err != nil {
		return nil, fmt.Errorf("botapi: getUpdates failed: %w", err)
	}

	updates, err := decodeUpdateList(result)
	if err != nil {
		return nil, fmt.Errorf("botapi: getUpdates failed: %w", &DecodingError{Snippet: bodySnippet(result), Err: err})
	}
	return updates, nil
}

// SendMessage sends a text message.
func (b *Bot) SendMessage(ctx context.Context, request SendMessageRequest) (*Message, error) {
	values, err := request.encode()
	if err != nil {
		return nil, fmt.Errorf("botapi: sendMessage failed: %w", err)
	}
	if err := b.throttleWait(ctx, request.ChatID); err != nil {
		return nil, fmt.Errorf("botapi: sendMessage failed: %w", err)
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	result, err := b.client.invokeMethod(ctx, "sendMessage", values)
	if err != nil {
		return nil, fmt.Errorf("botapi: sendMessage failed: %w", err)
	}
	message, err := decodeMessage(result)
	if err != nil {
		return nil, fmt.Errorf("botapi: sendMessage failed: %w", err)
	}
	return message, nil
}

// ForwardMessage forwards a message between chats.
func (b *Bot) ForwardMessage(ctx context.Context, request ForwardMessageRequest) (*Message, error) {
	values, err := request.encode()
	if err != nil {
		return nil, fmt.Errorf("botapi: forwardMessage failed: %w", err)
	}
	if err := b.throttleWait(ctx, request.ChatID); err != nil {
		return nil, fmt.Errorf("botapi: forwardMessage failed: %w", err)
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	result, err := b.client.invokeMethod(ctx, "forwardMessage", values)
	if err != nil {
		return nil, fmt.Errorf("botapi: forwardMessage failed: %w", err)
	}
	message, err := decodeMessage(result)
	if err != nil {
		return nil, fmt.Errorf("botapi: forwardMessage failed: %w", err)
	}
	return message, nil
}

// EditMessageText rewrites the text of a sent message. The returned
// Message is nil for inline-mode edits, where the server reports only
// success.
func (b *Bot) EditMessageText(ctx context.Context, request EditMessageTextRequest) (*Message, error) {
	values, err := request.encode()
	if err != nil {
		return nil, fmt.Errorf("botapi: editMessageText failed: %w", err)
	}
	if err := b.throttleWait(ctx, request.ChatID); err != nil {
		return nil, fmt.Errorf("botapi: editMessageText failed: %w", err)
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	result, err := b.client.invokeMethod(ctx, "editMessageText", values)
	if err != nil {
		return nil, fmt.Errorf("botapi: editMessageText failed: %w", err)
	}
	if string(result) == "true" {
		return nil, nil
	}
	message, err := decodeMessage(result)
	if err != nil {
		return nil, fmt.Errorf("botapi: editMessageText failed: %w", err)
	}
	return message, nil
}

// DeleteMessage removes a message.
func (b *Bot) DeleteMessage(ctx context.Context, request DeleteMessageRequest) error {
	values, err := request.encode()
	if err != nil {
		return fmt.Errorf("botapi: deleteMessage failed: %w", err)
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	if _, err := b.client.invokeMethod(ctx, "deleteMessage", values); err != nil {
		return fmt.Errorf("botapi: deleteMessage failed: %w", err)
	}
	return nil
}

// SendChatAction shows a transient activity indicator in the chat.
func (b *Bot) SendChatAction(ctx context.Context, request SendChatActionRequest) error {
	values, err := request.encode()
	if err != nil {
		return fmt.Errorf("botapi: sendChatAction failed: %w", err)
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	if _, err := b.client.invokeMethod(ctx, "sendChatAction", values); err != nil {
		return fmt.Errorf("botapi: sendChatAction failed: %w", err)
	}
	return nil
}

// AnswerCallbackQuery acknowledges an inline button press. Every
// callback query must be answered or the user's client shows a spinner
// until it times out.
func (b *Bot) AnswerCallbackQuery(ctx context.Context, request AnswerCallbackQueryRequest) error {
	values, err := request.encode()
	if err != nil {
		return fmt.Errorf("botapi: answerCallbackQuery failed: %w", err)
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	if _, err := b.client.invokeMethod(ctx, "answerCallbackQuery", values); err != nil {
		return fmt.Errorf("botapi: answerCallbackQuery failed: %w", err)
	}
	return nil
}

// SendPhoto sends a photo. Reference files (file_id, URL) go through
// the form path; content files upload via multipart, consulting the
// upload cache when one is configured.
func (b *Bot) SendPhoto(ctx context.Context, request SendPhotoRequest) (*Message, error) {
	values, err := request.encode()
	if err != nil {
		return nil, fmt.Errorf("botapi: sendPhoto failed: %w", err)
	}
	if err := b.throttleWait(ctx, request.ChatID); err != nil {
		return nil, fmt.Errorf("botapi: sendPhoto failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.transferTimeout)
	defer cancel()

	result, err := b.sendFile(ctx, "sendPhoto", "photo", request.Photo, values)
	if err != nil {
		return nil, fmt.Errorf("botapi: sendPhoto failed: %w", err)
	}
	message, err := decodeMessage(result)
	if err != nil {
		return nil, fmt.Errorf("botapi: sendPhoto failed: %w", err)
	}
	return message, nil
}

// SendDocument sends a generic file.
func (b *Bot) SendDocument(ctx context.Context, request SendDocumentRequest) (*Message, error) {
	values, err := request.encode()
	if err != nil {
		return nil, fmt.Errorf("botapi: sendDocument failed: %w", err)
	}
	if err := b.throttleWait(ctx, request.ChatID); err != nil {
		return nil, fmt.Errorf("botapi: sendDocument failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.transferTimeout)
	defer cancel()

	result, err := b.sendFile(ctx, "sendDocument", "document", request.Document, values)
	if err != nil {
		return nil, fmt.Errorf("botapi: sendDocument failed: %w", err)
	}
	message, err := decodeMessage(result)
	if err != nil {
		return nil, fmt.Errorf("botapi: sendDocument failed: %w", err)
	}
	return message, nil
}

// sendFile routes a media send. References ride the form path. Content
// uploads check the cache first: a hit retries the cheap form path,
// falling back to a real upload when the server no longer accepts the
// cached file_id.
func (b *Bot) sendFile(ctx context.Context, method, field string, file InputFile, values url.Values) (json.RawMessage, error) {
	if !file.needsUpload() {
		values.Set(field, file.wireValue())
		return b.client.invokeMethod(ctx, method, values)
	}

	sum, hashable := contentSum(file)
	if hashable && b.uploads != nil {
		if fileID, ok := b.uploads.lookup(sum); ok {
			values.Set(field, fileID)
			result, err := b.client.invokeMethod(ctx, method, values)
			if err == nil {
				b.logger.Debug("reused uploaded file", "method", method, "file_id", fileID)
				return result, nil
			}
			if !IsAPIError(err, ErrCodeBadRequest) {
				return nil, err
			}
			// The server no longer recognizes the cached file_id.
			b.uploads.remove(sum)
			values.Del(field)
		}
	}

	result, err := b.client.invokeUpload(ctx, method, values, []filePart{{field: field, file: file}})
	if err != nil {
		return nil, err
	}
	if hashable && b.uploads != nil {
		if fileID := uploadedFileID(field, result); fileID != "" {
			b.uploads.store(sum, fileID)
		}
	}
	return result, nil
}

// uploadedFileID extracts the server-assigned file_id from a media
// send result, for caching. Photos report multiple sizes; the last is
// the largest and is the one worth reusing.
func uploadedFileID(field string, result json.RawMessage) string {
	var message Message
	if err := json.Unmarshal(result, &message); err != nil {
		return ""
	}
	switch field {
	case "photo":
		if n := len(message.Photo); n > 0 {
			return message.Photo[n-1].FileID
		}
	case "document":
		if message.Document != nil {
			return message.Document.FileID
		}
	}
	return ""
}

// GetFile resolves a file_id into a download handle.
func (b *Bot) GetFile(ctx context.Context, fileID string) (*File, error) {
	if fileID == "" {
		return nil, fmt.Errorf("botapi: getFile failed: %w", &EncodingError{Field: "file_id", Reason: "required"})
	}
	values := url.Values{}
	values.Set("file_id", fileID)

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	result, err := b.client.invokeMethod(ctx, "getFile", values)
	if err != nil {
		return nil, fmt.Errorf("botapi: getFile failed: %w", err)
	}

	var file File
	if err := json.Unmarshal(result, &file); err != nil {
		return nil, fmt.Errorf("botapi: getFile failed: %w", &DecodingError{Snippet: bodySnippet(result), Err: err})
	}
	return &file, nil
}

// DownloadFile streams a file's content into w. The handle comes from
// GetFile; its FilePath is valid for at least an hour.
func (b *Bot) DownloadFile(ctx context.Context, file *File, w io.Writer) (int64, error) {
	if file == nil || file.FilePath == nil {
		return 0, fmt.Errorf("botapi: download failed: %w",
			&EncodingError{Field: "file_path", Reason: "missing; resolve the file with GetFile first"})
	}

	ctx, cancel := context.WithTimeout(ctx, b.transferTimeout)
	defer cancel()

	written, err := b.client.DownloadFile(ctx, *file.FilePath, w)
	if err != nil {
		return written, fmt.Errorf("botapi: download failed: %w", err)
	}
	return written, nil
}

// SetWebhook switches update delivery to webhook push. A bot with a
// webhook set cannot long-poll.
func (b *Bot) SetWebhook(ctx context.Context, request SetWebhookRequest) error {
	values, err := request.encode()
	if err != nil {
		return fmt.Errorf("botapi: setWebhook failed: %w", err)
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	if request.Certificate.needsUpload() {
		parts := []filePart{{field: "certificate", file: request.Certificate}}
		if _, err := b.client.invokeUpload(ctx, "setWebhook", values, parts); err != nil {
			return fmt.Errorf("botapi: setWebhook failed: %w", err)
		}
		return nil
	}
	if _, err := b.client.invokeMethod(ctx, "setWebhook", values); err != nil {
		return fmt.Errorf("botapi: setWebhook failed: %w", err)
	}
	return nil
}

// DeleteWebhook removes the webhook so polling can resume. With
// dropPending, queued updates are discarded instead of delivered to
// the next poll.
func (b *Bot) DeleteWebhook(ctx context.Context, dropPending bool) error {
	values := url.Values{}
	if dropPending {
		values.Set("drop_pending_updates", "true")
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	if _, err := b.client.invokeMethod(ctx, "deleteWebhook", values); err != nil {
		return fmt.Errorf("botapi: deleteWebhook failed: %w", err)
	}
	return nil
}

// GetWebhookInfo reports the current webhook state. URL is empty when
// the bot is in polling mode.
func (b *Bot) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	result, err := b.client.invokeMethod(ctx, "getWebhookInfo", nil)
	if err != nil {
		return nil, fmt.Errorf("botapi: getWebhookInfo failed: %w", err)
	}

	var info WebhookInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("botapi: getWebhookInfo failed: %w", &DecodingError{Snippet: bodySnippet(result), Err: err})
	}
	return &info, nil
}

// SetMyCommands replaces the bot's command menu.
func (b *Bot) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	values, err := encodeCommandList(commands)
	if err != nil {
		return fmt.Errorf("botapi: setMyCommands failed: %w", err)
	}

	ctx, cancel := b.callContext(ctx)
	defer cancel()

	if _, err := b.client.invokeMethod(ctx, "setMyCommands", values); err != nil {
		return fmt.Errorf("botapi: setMyCommands failed: %w", err)
	}
	return nil
}

// GetMyCommands returns the bot's current command menu.
func (b *Bot) GetMyCommands(ctx context.Context) ([]BotCommand, error) {
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	result, err := b.client.invokeMethod(ctx, "getMyCommands", nil)
	if err != nil {
		return nil, fmt.Errorf("botapi: getMyCommands failed: %w", err)
	}

	var commands []BotCommand
	if err := json.Unmarshal(result, &commands); err != nil {
		return nil, fmt.Errorf("botapi: getMyCommands failed: %w", &DecodingError{Snippet: bodySnippet(result), Err: err})
	}
	return commands, nil
}

// decodeMessage decodes the Message result shared by the send-class
// methods.
func decodeMessage(result json.RawMessage) (*Message, error) {
	var message Message
	if err := json.Unmarshal(result, &message); err != nil {
		return nil, &DecodingError{Snippet: bodySnippet(result), Err: err}
	}
	return &message, nil
}
