// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"strings"
	"time"
)

// Entity structs mirror the Bot API wire objects. Optional wire fields
// are pointers: nil means the server omitted the field, which is
// distinct from a present zero value. Unknown wire fields are ignored
// for forward compatibility. Every field of a decoded entity is
// independently owned; nothing aliases the transient response buffer.

// User is a Telegram account, bot or human.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`

	LastName     *string `json:"last_name,omitempty"`
	Username     *string `json:"username,omitempty"`
	LanguageCode *string `json:"language_code,omitempty"`

	// Populated only on the bot's own User from getMe.
	CanJoinGroups           *bool `json:"can_join_groups,omitempty"`
	CanReadAllGroupMessages *bool `json:"can_read_all_group_messages,omitempty"`
	SupportsInlineQueries   *bool `json:"supports_inline_queries,omitempty"`
}

// ChatType discriminates the four kinds of chat.
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// Chat is a conversation: a private chat, group, supergroup, or
// channel. Which optional fields are present depends on Type: private
// chats carry names, the rest carry a title.
type Chat struct {
	ID   int64    `json:"id"`
	Type ChatType `json:"type"`

	Title     *string `json:"title,omitempty"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// Message is one message in a chat. From is nil for channel posts.
// ReplyToMessage is a single-level child: the server strips its own
// ReplyToMessage field, so the nesting never recurses further.
type Message struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
	Chat      Chat  `json:"chat"`

	From     *User  `json:"from,omitempty"`
	EditDate *int64 `json:"edit_date,omitempty"`

	Text     *string         `json:"text,omitempty"`
	Entities []MessageEntity `json:"entities,omitempty"`

	Photo           []PhotoSize     `json:"photo,omitempty"`
	Document        *Document       `json:"document,omitempty"`
	Caption         *string         `json:"caption,omitempty"`
	CaptionEntities []MessageEntity `json:"caption_entities,omitempty"`

	ReplyToMessage *Message `json:"reply_to_message,omitempty"`
	MediaGroupID   *string  `json:"media_group_id,omitempty"`

	// Group-to-supergroup migration markers.
	MigrateToChatID   *int64 `json:"migrate_to_chat_id,omitempty"`
	MigrateFromChatID *int64 `json:"migrate_from_chat_id,omitempty"`
}

// Time returns the message timestamp as a time.Time.
func (m *Message) Time() time.Time {
	return time.Unix(m.Date, 0)
}

// Command returns the bot command at the start of the message text
// ("/start", "/help@botname" with the mention stripped) and true, or
// "" and false when the message does not start with a bot_command
// entity.
func (m *Message) Command() (string, bool) {
	if m.Text == nil {
		return "", false
	}
	for _, entity := range m.Entities {
		if entity.Type != "bot_command" || entity.Offset != 0 {
			continue
		}
		text := []rune(*m.Text)
		// Length arrives unvalidated from the server; a negative or
		// oversize span is no command, not a panic.
		if entity.Length <= 0 || entity.Length > len(text) {
			return "", false
		}
		command := string(text[:entity.Length])
		if at := strings.Index(command, "@"); at >= 0 {
			command = command[:at]
		}
		return command, true
	}
	return "", false
}

// MessageEntity marks a span of message text with special meaning:
// a bot command, mention, URL, formatting range. Offset and Length
// count UTF-16 code units, per the wire contract.
type MessageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`

	URL      *string `json:"url,omitempty"`
	User     *User   `json:"user,omitempty"`
	Language *string `json:"language,omitempty"`
}

// PhotoSize is one resolution of a photo. The server sends several
// per photo, smallest first.
type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`

	FileSize *int64 `json:"file_size,omitempty"`
}

// Document is a generic file attachment.
type Document struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`

	Thumbnail *PhotoSize `json:"thumb,omitempty"`
	FileName  *string    `json:"file_name,omitempty"`
	MimeType  *string    `json:"mime_type,omitempty"`
	FileSize  *int64     `json:"file_size,omitempty"`
}

// File is the download handle returned by getFile. FilePath is valid
// for at least an hour; pass it to Client.DownloadFile.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`

	FileSize *int64  `json:"file_size,omitempty"`
	FilePath *string `json:"file_path,omitempty"`
}

// CallbackQuery is a press on an inline keyboard button. Answer it
// with Bot.AnswerCallbackQuery or the client shows a spinner until it
// times out.
type CallbackQuery struct {
	ID           string `json:"id"`
	From         User   `json:"from"`
	ChatInstance string `json:"chat_instance"`

	Message         *Message `json:"message,omitempty"`
	InlineMessageID *string  `json:"inline_message_id,omitempty"`
	Data            *string  `json:"data,omitempty"`
}

// WebhookInfo is the current webhook state from getWebhookInfo. URL is
// empty when updates are acquired by polling instead.
type WebhookInfo struct {
	URL                  string `json:"url"`
	HasCustomCertificate bool   `json:"has_custom_certificate"`
	PendingUpdateCount   int    `json:"pending_update_count"`

	LastErrorDate    *int64   `json:"last_error_date,omitempty"`
	LastErrorMessage *string  `json:"last_error_message,omitempty"`
	MaxConnections   *int     `json:"max_connections,omitempty"`
	AllowedUpdates   []string `json:"allowed_updates,omitempty"`
}

// BotCommand is one entry in the bot's command menu.
type BotCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// ChatAction is a transient activity indicator shown in the chat
// header ("typing...").
type ChatAction string

const (
	ActionTyping         ChatAction = "typing"
	ActionUploadPhoto    ChatAction = "upload_photo"
	ActionUploadDocument ChatAction = "upload_document"
	ActionFindLocation   ChatAction = "find_location"
)

// ParseMode selects server-side formatting of outbound text.
type ParseMode string

const (
	ParseModeHTML       ParseMode = "HTML"
	ParseModeMarkdownV2 ParseMode = "MarkdownV2"
)

// ReplyMarkup is the closed set of keyboard attachments a send request
// can carry: inline keyboard, reply keyboard, keyboard removal, or a
// forced reply.
type ReplyMarkup interface {
	replyMarkup()
}

// InlineKeyboardMarkup attaches buttons directly to a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

func (InlineKeyboardMarkup) replyMarkup() {}

// InlineKeyboardButton is one inline button. Exactly one of URL and
// CallbackData must be set.
type InlineKeyboardButton struct {
	Text string `json:"text"`

	URL          *string `json:"url,omitempty"`
	CallbackData *string `json:"callback_data,omitempty"`
}

// ReplyKeyboardMarkup replaces the user's system keyboard with custom
// buttons.
type ReplyKeyboardMarkup struct {
	Keyboard [][]KeyboardButton `json:"keyboard"`

	ResizeKeyboard  *bool   `json:"resize_keyboard,omitempty"`
	OneTimeKeyboard *bool   `json:"one_time_keyboard,omitempty"`
	Placeholder     *string `json:"input_field_placeholder,omitempty"`
	Selective       *bool   `json:"selective,omitempty"`
}

func (ReplyKeyboardMarkup) replyMarkup() {}

// KeyboardButton is one reply keyboard button.
type KeyboardButton struct {
	Text string `json:"text"`

	RequestContact  *bool `json:"request_contact,omitempty"`
	RequestLocation *bool `json:"request_location,omitempty"`
}

// ReplyKeyboardRemove takes down a previously sent reply keyboard.
type ReplyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`

	Selective *bool `json:"selective,omitempty"`
}

func (ReplyKeyboardRemove) replyMarkup() {}

// ForceReply makes the client open a reply interface automatically.
type ForceReply struct {
	ForceReply bool `json:"force_reply"`

	Placeholder *string `json:"input_field_placeholder,omitempty"`
	Selective   *bool   `json:"selective,omitempty"`
}

func (ForceReply) replyMarkup() {}
