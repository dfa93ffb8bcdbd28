package telegram

import (
	"strings"
	"time"

	"github.com/hyperlinkspace/telegate/pkg/envelope"
)

// Accessors project the fields dispatch cares about out of an Update without
// callers having to know which payload variant is set. All of them return
// zero values when the field is absent.

// ChatID returns the chat to reply to. Lookup order: message, edited_message,
// callback_query.message, channel_post.
func ChatID(u *Update) int64 {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID
	case u.EditedMessage != nil:
		return u.EditedMessage.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat.ID
	case u.ChannelPost != nil:
		return u.ChannelPost.Chat.ID
	}
	return 0
}

// UserID returns the id of the user who originated the update.
func UserID(u *Update) int64 {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	case u.EditedMessage != nil && u.EditedMessage.From != nil:
		return u.EditedMessage.From.ID
	case u.CallbackQuery != nil:
		return u.CallbackQuery.From.ID
	case u.InlineQuery != nil:
		return u.InlineQuery.From.ID
	}
	return 0
}

// Text returns the textual content of the update, or "" when it carries none
// (stickers, photos, joins).
func Text(u *Update) string {
	switch {
	case u.Message != nil:
		return u.Message.Text
	case u.EditedMessage != nil:
		return u.EditedMessage.Text
	case u.ChannelPost != nil:
		return u.ChannelPost.Text
	}
	return ""
}

// MessageID returns the id of the message the update is about.
func MessageID(u *Update) int64 {
	switch {
	case u.Message != nil:
		return u.Message.MessageID
	case u.EditedMessage != nil:
		return u.EditedMessage.MessageID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.MessageID
	case u.ChannelPost != nil:
		return u.ChannelPost.MessageID
	}
	return 0
}

// Command returns the lowercased slash command the update's text starts with,
// with any @botname suffix stripped, or "" when the text is not a command.
// "/START@MyBot hello" yields "/start".
func Command(u *Update) string {
	text := strings.TrimSpace(Text(u))
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	token := strings.Fields(text)[0]
	if at := strings.IndexByte(token, '@'); at > 0 {
		token = token[:at]
	}
	return strings.ToLower(token)
}

// Kind names the payload variant carried by the update, for log context.
func Kind(u *Update) string {
	switch {
	case u.Message != nil:
		return "message"
	case u.EditedMessage != nil:
		return "edited_message"
	case u.CallbackQuery != nil:
		return "callback_query"
	case u.InlineQuery != nil:
		return "inline_query"
	case u.ChannelPost != nil:
		return "channel_post"
	}
	return "unknown"
}

// BuildEnvelope projects an update into the downstream wire payload. The
// timestamp is the message date when present, otherwise the current time,
// both in unix seconds.
func BuildEnvelope(u *Update) envelope.Envelope {
	cmd := Command(u)

	ts := int64(0)
	switch {
	case u.Message != nil:
		ts = u.Message.Date
	case u.EditedMessage != nil:
		ts = u.EditedMessage.Date
	case u.ChannelPost != nil:
		ts = u.ChannelPost.Date
	}
	if ts == 0 {
		ts = time.Now().Unix()
	}

	return envelope.Envelope{
		UpdateID:  u.UpdateID,
		ChatID:    ChatID(u),
		UserID:    UserID(u),
		Text:      Text(u),
		MessageID: MessageID(u),
		IsCommand: cmd != "",
		Command:   cmd,
		Timestamp: ts,
	}
}
