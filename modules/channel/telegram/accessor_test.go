package telegram

import (
	"testing"
)

func msgUpdate(chatID, userID, msgID int64, text string) *Update {
	return &Update{
		UpdateID: 100,
		Message: &Message{
			MessageID: msgID,
			From:      &User{ID: userID},
			Chat:      Chat{ID: chatID, Type: "private"},
			Date:      1717243200,
			Text:      text,
		},
	}
}

func TestChatIDPriority(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		u    *Update
		want int64
	}{
		{"message", msgUpdate(10, 1, 1, "hi"), 10},
		{"edited message", &Update{EditedMessage: &Message{Chat: Chat{ID: 20}}}, 20},
		{"callback query", &Update{CallbackQuery: &CallbackQuery{
			From:    User{ID: 5},
			Message: &Message{Chat: Chat{ID: 30}},
		}}, 30},
		{"callback query without message", &Update{CallbackQuery: &CallbackQuery{From: User{ID: 5}}}, 0},
		{"channel post", &Update{ChannelPost: &Message{Chat: Chat{ID: 40}}}, 40},
		{"inline query", &Update{InlineQuery: &InlineQuery{From: User{ID: 5}}}, 0},
		{"empty", &Update{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ChatID(tt.u); got != tt.want {
				t.Errorf("ChatID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		u    *Update
		want int64
	}{
		{"message from", msgUpdate(10, 7, 1, "hi"), 7},
		{"message without from", &Update{Message: &Message{Chat: Chat{ID: 1}}}, 0},
		{"callback from", &Update{CallbackQuery: &CallbackQuery{From: User{ID: 8}}}, 8},
		{"inline from", &Update{InlineQuery: &InlineQuery{From: User{ID: 9}}}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := UserID(tt.u); got != tt.want {
				t.Errorf("UserID() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want string
	}{
		{"/start", "/start"},
		{"/START", "/start"},
		{"/start hello there", "/start"},
		{"  /ping  ", "/ping"},
		{"/start@MyBot", "/start"},
		{"/start@MyBot now", "/start"},
		{"hello", ""},
		{"", ""},
		{"   ", ""},
		{"not /start", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			u := msgUpdate(1, 1, 1, tt.text)
			if got := Command(u); got != tt.want {
				t.Errorf("Command(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestCommandNonTextUpdate(t *testing.T) {
	t.Parallel()
	u := &Update{CallbackQuery: &CallbackQuery{From: User{ID: 1}, Data: "/start"}}
	if got := Command(u); got != "" {
		t.Errorf("Command() on callback data = %q, want empty", got)
	}
}

func TestKind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		u    *Update
		want string
	}{
		{"message", msgUpdate(1, 1, 1, "x"), "message"},
		{"edited", &Update{EditedMessage: &Message{}}, "edited_message"},
		{"callback", &Update{CallbackQuery: &CallbackQuery{}}, "callback_query"},
		{"inline", &Update{InlineQuery: &InlineQuery{}}, "inline_query"},
		{"channel post", &Update{ChannelPost: &Message{}}, "channel_post"},
		{"unknown", &Update{}, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Kind(tt.u); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildEnvelope(t *testing.T) {
	t.Parallel()
	u := msgUpdate(10, 7, 55, "/start hello")

	env := BuildEnvelope(u)
	if env.UpdateID != 100 {
		t.Errorf("UpdateID = %d, want 100", env.UpdateID)
	}
	if env.ChatID != 10 || env.UserID != 7 || env.MessageID != 55 {
		t.Errorf("ids = (%d, %d, %d), want (10, 7, 55)", env.ChatID, env.UserID, env.MessageID)
	}
	if env.Text != "/start hello" {
		t.Errorf("Text = %q", env.Text)
	}
	if !env.IsCommand || env.Command != "/start" {
		t.Errorf("command fields = (%v, %q), want (true, /start)", env.IsCommand, env.Command)
	}
	if env.Timestamp != 1717243200 {
		t.Errorf("Timestamp = %d, want message date", env.Timestamp)
	}
}

func TestBuildEnvelopePlainText(t *testing.T) {
	t.Parallel()
	env := BuildEnvelope(msgUpdate(1, 2, 3, "just text"))
	if env.IsCommand {
		t.Error("plain text should not be a command")
	}
	if env.Command != "" {
		t.Errorf("Command = %q, want empty", env.Command)
	}
}

func TestBuildEnvelopeNoMessage(t *testing.T) {
	t.Parallel()
	env := BuildEnvelope(&Update{UpdateID: 5, CallbackQuery: &CallbackQuery{From: User{ID: 2}}})
	if env.UpdateID != 5 || env.UserID != 2 {
		t.Errorf("envelope = %+v", env)
	}
	if env.Timestamp == 0 {
		t.Error("Timestamp should fall back to current time")
	}
}
