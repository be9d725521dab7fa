package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangeMessage announces a successful ledger mutation.
// Consumers re-read the ledger; the message only carries where it changed.
type LedgerChangeMessage struct {
	Op        string    `json:"op"`
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerChangeMessage stamps a change with the current time
func NewLedgerChangeMessage(op string, position int) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		Op:        op,
		Position:  position,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes a message body
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
