// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import "encoding/json"

// UpdateType discriminates which variant of an Update is populated.
// Assigned during decoding; callers switch on it instead of probing
// the variant pointers themselves.
type UpdateType string

const (
	UpdateMessage           UpdateType = "message"
	UpdateEditedMessage     UpdateType = "edited_message"
	UpdateChannelPost       UpdateType = "channel_post"
	UpdateEditedChannelPost UpdateType = "edited_channel_post"
	UpdateCallbackQuery     UpdateType = "callback_query"

	// UpdateUnknown marks an update whose payload matched no known
	// variant: a kind this library does not model yet, or an update
	// whose body failed to decode. The ID is still valid so the poll
	// offset advances past it.
	UpdateUnknown UpdateType = "unknown"
)

// Update is one inbound event. The wire format is a flat object with
// one variant key populated among many optional ones; decoding tags
// the populated variant in Type, making this a tagged union rather
// than a bag of optionals.
type Update struct {
	// ID is the server-assigned update_id, strictly increasing within
	// a poll session. The poll offset resumes from max(ID)+1.
	ID int64 `json:"update_id"`

	// Type names the populated variant. Not a wire field.
	Type UpdateType `json:"-"`

	Message           *Message       `json:"message,omitempty"`
	EditedMessage     *Message       `json:"edited_message,omitempty"`
	ChannelPost       *Message       `json:"channel_post,omitempty"`
	EditedChannelPost *Message       `json:"edited_channel_post,omitempty"`
	CallbackQuery     *CallbackQuery `json:"callback_query,omitempty"`
}

// UnmarshalJSON decodes the flat wire object and assigns Type from the
// first populated variant. An update carrying only unrecognized
// variant keys decodes successfully as UpdateUnknown.
func (u *Update) UnmarshalJSON(data []byte) error {
	// Alias drops the method set so the inner Unmarshal does not
	// recurse back here.
	type wire Update
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*u = Update(w)

	switch {
	case u.Message != nil:
		u.Type = UpdateMessage
	case u.EditedMessage != nil:
		u.Type = UpdateEditedMessage
	case u.ChannelPost != nil:
		u.Type = UpdateChannelPost
	case u.EditedChannelPost != nil:
		u.Type = UpdateEditedChannelPost
	case u.CallbackQuery != nil:
		u.Type = UpdateCallbackQuery
	default:
		u.Type = UpdateUnknown
	}
	return nil
}

// Chat returns the chat this update concerns, or nil when the variant
// carries none (unknown updates, callback queries on inline messages).
func (u *Update) Chat() *Chat {
	switch u.Type {
	case UpdateMessage:
		return &u.Message.Chat
	case UpdateEditedMessage:
		return &u.EditedMessage.Chat
	case UpdateChannelPost:
		return &u.ChannelPost.Chat
	case UpdateEditedChannelPost:
		return &u.EditedChannelPost.Chat
	case UpdateCallbackQuery:
		if u.CallbackQuery.Message != nil {
			return &u.CallbackQuery.Message.Chat
		}
	}
	return nil
}

// Sender returns the user who triggered this update, or nil when the
// variant has no sender (channel posts, unknown updates).
func (u *Update) Sender() *User {
	switch u.Type {
	case UpdateMessage:
		return u.Message.From
	case UpdateEditedMessage:
		return u.EditedMessage.From
	case UpdateCallbackQuery:
		return &u.CallbackQuery.From
	}
	return nil
}

// decodeUpdateList decodes a getUpdates result. Items are decoded
// one at a time so a single malformed update degrades to
// UpdateUnknown instead of aborting the whole batch; its update_id is
// salvaged when possible so the offset still advances past it.
func decodeUpdateList(data json.RawMessage) ([]Update, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	updates := make([]Update, 0, len(items))
	for _, item := range items {
		var u Update
		if err := json.Unmarshal(item, &u); err != nil {
			var probe struct {
				UpdateID int64 `json:"update_id"`
			}
			_ = json.Unmarshal(item, &probe)
			u = Update{ID: probe.UpdateID, Type: UpdateUnknown}
		}
		updates = append(updates, u)
	}
	return updates, nil
}

// DecodeWebhookUpdate decodes a single update delivered by webhook
// push rather than polling. The caller owns receiving the HTTP POST;
// this handles only the payload, with the same variant tagging as the
// polling path.
func DecodeWebhookUpdate(data []byte) (*Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, &DecodingError{Snippet: bodySnippet(data), Err: err}
	}
	return &u, nil
}
