// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Request structs describe one API call each. Their unexported encode
// methods build the form payload, setting exactly the parameters that
// are set on the struct and failing fast with *EncodingError when a
// required one is missing. Scalars travel as their decimal or literal
// form; complex values (keyboards, entity lists) travel as JSON
// strings inside individual form fields. Which parameters are
// JSON-in-form is fixed per parameter by the wire contract, never
// inferred from the value.

// ChatRef identifies a chat by numeric ID or public @username.
// The zero ChatRef is invalid and rejected at encode time.
type ChatRef struct {
	id       int64
	username string
}

// ChatID references a chat by its numeric identifier.
func ChatID(id int64) ChatRef {
	return ChatRef{id: id}
}

// ChatUsername references a public chat or channel by username. The
// leading @ may be included or omitted.
func ChatUsername(name string) ChatRef {
	name = strings.TrimPrefix(name, "@")
	if name == "" {
		return ChatRef{}
	}
	return ChatRef{username: "@" + name}
}

// IsZero reports whether the reference identifies nothing.
func (r ChatRef) IsZero() bool {
	return r.id == 0 && r.username == ""
}

// String returns the wire form: the decimal ID or the @username.
func (r ChatRef) String() string {
	if r.username != "" {
		return r.username
	}
	return strconv.FormatInt(r.id, 10)
}

// ID returns the numeric chat ID, or 0 for username references.
// Useful as a throttle key.
func (r ChatRef) ID() int64 {
	return r.id
}

// setJSON marshals v into a single form field.
func setJSON(values url.Values, key string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return &EncodingError{Field: key, Reason: fmt.Sprintf("marshaling: %v", err)}
	}
	values.Set(key, string(encoded))
	return nil
}

// setChat validates and sets a required chat reference.
func setChat(values url.Values, key string, ref ChatRef) error {
	if ref.IsZero() {
		return &EncodingError{Field: key, Reason: "required"}
	}
	values.Set(key, ref.String())
	return nil
}

// GetUpdatesRequest asks the server for the next batch of updates.
type GetUpdatesRequest struct {
	// Offset is the first update_id to deliver. Zero requests from the
	// start of the unconfirmed backlog; the server discards everything
	// below a non-zero offset.
	Offset int64
	// Limit caps the batch size, 1-100. Zero uses the server default.
	Limit int
	// Timeout is the long-poll hold in seconds. Zero means short
	// polling.
	Timeout int
	// AllowedUpdates restricts delivered kinds. Nil keeps the server's
	// previous setting; an empty non-nil slice resets to the default
	// set. The nil/empty distinction is meaningful, so the field is
	// sent exactly when non-nil.
	AllowedUpdates []string
}

func (r GetUpdatesRequest) encode() (url.Values, error) {
	if r.Offset < 0 {
		return nil, &EncodingError{Field: "offset", Reason: "must not be negative"}
	}
	if r.Limit < 0 || r.Limit > 100 {
		return nil, &EncodingError{Field: "limit", Reason: "must be 0-100"}
	}
	if r.Timeout < 0 {
		return nil, &EncodingError{Field: "timeout", Reason: "must not be negative"}
	}

	values := url.Values{}
	if r.Offset != 0 {
		values.Set("offset", strconv.FormatInt(r.Offset, 10))
	}
	if r.Limit != 0 {
		values.Set("limit", strconv.Itoa(r.Limit))
	}
	values.Set("timeout", strconv.Itoa(r.Timeout))
	if r.AllowedUpdates != nil {
		if err := setJSON(values, "allowed_updates", r.AllowedUpdates); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// SendMessageRequest sends a text message.
type SendMessageRequest struct {
	ChatID ChatRef
	Text   string

	ParseMode             ParseMode
	Entities              []MessageEntity
	DisableWebPagePreview bool
	DisableNotification   bool
	ProtectContent        bool
	ReplyToMessageID      int64
	ReplyMarkup           ReplyMarkup
}

func (r SendMessageRequest) encode() (url.Values, error) {
	values := url.Values{}
	if err := setChat(values, "chat_id", r.ChatID); err != nil {
		return nil, err
	}
	if r.Text == "" {
		return nil, &EncodingError{Field: "text", Reason: "required"}
	}
	values.Set("text", r.Text)

	if r.ParseMode != "" {
		values.Set("parse_mode", string(r.ParseMode))
	}
	if r.Entities != nil {
		if err := setJSON(values, "entities", r.Entities); err != nil {
			return nil, err
		}
	}
	if r.DisableWebPagePreview {
		values.Set("disable_web_page_preview", "true")
	}
	encodeSendCommon(values, r.DisableNotification, r.ProtectContent, r.ReplyToMessageID)
	if r.ReplyMarkup != nil {
		if err := setJSON(values, "reply_markup", r.ReplyMarkup); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// encodeSendCommon sets the flags shared by every send-class request.
func encodeSendCommon(values url.Values, disableNotification, protectContent bool, replyTo int64) {
	if disableNotification {
		values.Set("disable_notification", "true")
	}
	if protectContent {
		values.Set("protect_content", "true")
	}
	if replyTo != 0 {
		values.Set("reply_to_message_id", strconv.FormatInt(replyTo, 10))
	}
}

// ForwardMessageRequest copies a message between chats, keeping the
// original attribution header.
type ForwardMessageRequest struct {
	ChatID     ChatRef
	FromChatID ChatRef
	MessageID  int64

	DisableNotification bool
	ProtectContent      bool
}

func (r ForwardMessageRequest) encode() (url.Values, error) {
	values := url.Values{}
	if err := setChat(values, "chat_id", r.ChatID); err != nil {
		return nil, err
	}
	if err := setChat(values, "from_chat_id", r.FromChatID); err != nil {
		return nil, err
	}
	if r.MessageID == 0 {
		return nil, &EncodingError{Field: "message_id", Reason: "required"}
	}
	values.Set("message_id", strconv.FormatInt(r.MessageID, 10))
	encodeSendCommon(values, r.DisableNotification, r.ProtectContent, 0)
	return values, nil
}

// EditMessageTextRequest rewrites the text of an existing message.
// Identify the message either by ChatID+MessageID or, for inline-mode
// messages, by InlineMessageID alone.
type EditMessageTextRequest struct {
	ChatID          ChatRef
	MessageID       int64
	InlineMessageID string

	Text                  string
	ParseMode             ParseMode
	Entities              []MessageEntity
	DisableWebPagePreview bool
	ReplyMarkup           ReplyMarkup
}

func (r EditMessageTextRequest) encode() (url.Values, error) {
	values := url.Values{}
	if r.InlineMessageID != "" {
		values.Set("inline_message_id", r.InlineMessageID)
	} else {
		if err := setChat(values, "chat_id", r.ChatID); err != nil {
			return nil, err
		}
		if r.MessageID == 0 {
			return nil, &EncodingError{Field: "message_id", Reason: "required without inline_message_id"}
		}
		values.Set("message_id", strconv.FormatInt(r.MessageID, 10))
	}
	if r.Text == "" {
		return nil, &EncodingError{Field: "text", Reason: "required"}
	}
	values.Set("text", r.Text)

	if r.ParseMode != "" {
		values.Set("parse_mode", string(r.ParseMode))
	}
	if r.Entities != nil {
		if err := setJSON(values, "entities", r.Entities); err != nil {
			return nil, err
		}
	}
	if r.DisableWebPagePreview {
		values.Set("disable_web_page_preview", "true")
	}
	if r.ReplyMarkup != nil {
		if err := setJSON(values, "reply_markup", r.ReplyMarkup); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// DeleteMessageRequest removes a message the bot may delete.
type DeleteMessageRequest struct {
	ChatID    ChatRef
	MessageID int64
}

func (r DeleteMessageRequest) encode() (url.Values, error) {
	values := url.Values{}
	if err := setChat(values, "chat_id", r.ChatID); err != nil {
		return nil, err
	}
	if r.MessageID == 0 {
		return nil, &EncodingError{Field: "message_id", Reason: "required"}
	}
	values.Set("message_id", strconv.FormatInt(r.MessageID, 10))
	return values, nil
}

// SendChatActionRequest shows a transient activity indicator.
type SendChatActionRequest struct {
	ChatID ChatRef
	Action ChatAction
}

func (r SendChatActionRequest) encode() (url.Values, error) {
	values := url.Values{}
	if err := setChat(values, "chat_id", r.ChatID); err != nil {
		return nil, err
	}
	if r.Action == "" {
		return nil, &EncodingError{Field: "action", Reason: "required"}
	}
	values.Set("action", string(r.Action))
	return values, nil
}

// AnswerCallbackQueryRequest acknowledges an inline button press,
// optionally with a notification or alert.
type AnswerCallbackQueryRequest struct {
	CallbackQueryID string

	Text      string
	ShowAlert bool
	URL       string
	CacheTime int
}

func (r AnswerCallbackQueryRequest) encode() (url.Values, error) {
	if r.CallbackQueryID == "" {
		return nil, &EncodingError{Field: "callback_query_id", Reason: "required"}
	}
	values := url.Values{}
	values.Set("callback_query_id", r.CallbackQueryID)
	if r.Text != "" {
		values.Set("text", r.Text)
	}
	if r.ShowAlert {
		values.Set("show_alert", "true")
	}
	if r.URL != "" {
		values.Set("url", r.URL)
	}
	if r.CacheTime != 0 {
		values.Set("cache_time", strconv.Itoa(r.CacheTime))
	}
	return values, nil
}

// SendPhotoRequest sends a photo. The Photo file rides in the form
// when it is a file_id or URL reference, or as a multipart part when
// it carries content to upload; the façade picks the transport.
type SendPhotoRequest struct {
	ChatID ChatRef
	Photo  InputFile

	Caption             string
	ParseMode           ParseMode
	CaptionEntities     []MessageEntity
	DisableNotification bool
	ProtectContent      bool
	ReplyToMessageID    int64
	ReplyMarkup         ReplyMarkup
}

func (r SendPhotoRequest) encode() (url.Values, error) {
	values := url.Values{}
	if err := setChat(values, "chat_id", r.ChatID); err != nil {
		return nil, err
	}
	if r.Photo.isZero() {
		return nil, &EncodingError{Field: "photo", Reason: "required"}
	}
	if err := encodeCaption(values, r.Caption, r.ParseMode, r.CaptionEntities); err != nil {
		return nil, err
	}
	encodeSendCommon(values, r.DisableNotification, r.ProtectContent, r.ReplyToMessageID)
	if r.ReplyMarkup != nil {
		if err := setJSON(values, "reply_markup", r.ReplyMarkup); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// SendDocumentRequest sends a generic file.
type SendDocumentRequest struct {
	ChatID   ChatRef
	Document InputFile

	Caption                     string
	ParseMode                   ParseMode
	CaptionEntities             []MessageEntity
	DisableContentTypeDetection bool
	DisableNotification         bool
	ProtectContent              bool
	ReplyToMessageID            int64
	ReplyMarkup                 ReplyMarkup
}

func (r SendDocumentRequest) encode() (url.Values, error) {
	values := url.Values{}
	if err := setChat(values, "chat_id", r.ChatID); err != nil {
		return nil, err
	}
	if r.Document.isZero() {
		return nil, &EncodingError{Field: "document", Reason: "required"}
	}
	if err := encodeCaption(values, r.Caption, r.ParseMode, r.CaptionEntities); err != nil {
		return nil, err
	}
	if r.DisableContentTypeDetection {
		values.Set("disable_content_type_detection", "true")
	}
	encodeSendCommon(values, r.DisableNotification, r.ProtectContent, r.ReplyToMessageID)
	if r.ReplyMarkup != nil {
		if err := setJSON(values, "reply_markup", r.ReplyMarkup); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// encodeCaption sets the caption fields shared by media sends.
func encodeCaption(values url.Values, caption string, mode ParseMode, entities []MessageEntity) error {
	if caption != "" {
		values.Set("caption", caption)
	}
	if mode != "" {
		values.Set("parse_mode", string(mode))
	}
	if entities != nil {
		if err := setJSON(values, "caption_entities", entities); err != nil {
			return err
		}
	}
	return nil
}

// SetWebhookRequest switches update delivery to webhook push. A bot
// with a webhook set cannot poll; Courier binaries call DeleteWebhook
// before polling to recover from a stale webhook.
type SetWebhookRequest struct {
	URL string

	Certificate        InputFile
	IPAddress          string
	MaxConnections     int
	AllowedUpdates     []string
	DropPendingUpdates bool
	SecretToken        string
}

func (r SetWebhookRequest) encode() (url.Values, error) {
	if r.URL == "" {
		return nil, &EncodingError{Field: "url", Reason: "required"}
	}
	values := url.Values{}
	values.Set("url", r.URL)
	if r.IPAddress != "" {
		values.Set("ip_address", r.IPAddress)
	}
	if r.MaxConnections != 0 {
		values.Set("max_connections", strconv.Itoa(r.MaxConnections))
	}
	if r.AllowedUpdates != nil {
		if err := setJSON(values, "allowed_updates", r.AllowedUpdates); err != nil {
			return nil, err
		}
	}
	if r.DropPendingUpdates {
		values.Set("drop_pending_updates", "true")
	}
	if r.SecretToken != "" {
		values.Set("secret_token", r.SecretToken)
	}
	return values, nil
}

// encodeCommandList validates and encodes a setMyCommands payload.
func encodeCommandList(commands []BotCommand) (url.Values, error) {
	if len(commands) == 0 {
		return nil, &EncodingError{Field: "commands", Reason: "required"}
	}
	if len(commands) > 100 {
		return nil, &EncodingError{Field: "commands", Reason: "at most 100 commands"}
	}
	for _, command := range commands {
		if command.Command == "" || command.Description == "" {
			return nil, &EncodingError{Field: "commands", Reason: "command and description are required"}
		}
	}
	values := url.Values{}
	if err := setJSON(values, "commands", commands); err != nil {
		return nil, err
	}
	return values, nil
}
