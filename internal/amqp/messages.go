package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RateRefreshMessage asks the worker to refresh every currency rate of one
// user. UserID 0 means the system currencies.
type RateRefreshMessage struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewRateRefreshMessage creates a message with a fresh id.
func NewRateRefreshMessage(userID int64) *RateRefreshMessage {
	return &RateRefreshMessage{
		ID:          uuid.NewString(),
		UserID:      userID,
		RequestedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RateRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RateRefreshMessageFromJSON creates a message from JSON bytes
func RateRefreshMessageFromJSON(data []byte) (*RateRefreshMessage, error) {
	var msg RateRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
