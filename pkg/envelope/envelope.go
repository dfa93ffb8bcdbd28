// Package envelope defines the normalized update projection forwarded to the
// downstream processing service. It is the shared payload type between the
// Telegram channel (which builds envelopes) and the downstream forwarder
// (which ships them), so neither package needs to import the other.
package envelope

// Envelope is the wire payload for POST <base>/internal/process-update.
// Zero values mean "absent": ChatID/UserID/MessageID of 0 and empty Text
// mirror the optional fields of the originating update.
type Envelope struct {
	UpdateID  int64  `json:"update_id"`
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
	Text      string `json:"text"`
	MessageID int64  `json:"message_id"`
	IsCommand bool   `json:"is_command"`
	Command   string `json:"command,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
