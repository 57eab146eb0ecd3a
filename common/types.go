package common

// Message is a chat message as the relay stores and forwards it. Message
// holds either plaintext or a prefixed envelope; the relay never looks inside.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Message   string `json:"message" validate:"required"`
	// Beacon is the hex lookup token of an encrypted message, empty otherwise.
	Beacon string `json:"beacon,omitempty"`
	// Timestamp is unix milliseconds assigned by the relay.
	Timestamp int64 `json:"timestamp"`
}
