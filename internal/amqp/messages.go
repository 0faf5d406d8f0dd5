package amqp

import (
	"encoding/json"
	"time"
)

// SubscriptionSyncMessage asks the backup worker to mirror one
// subscription. It carries only the ID and version; the worker reads the
// current row from the database, so a stale message for an already
// re-updated row is harmless.
type SubscriptionSyncMessage struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Deleted   bool      `json:"deleted"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSubscriptionSyncMessage(id string, version int64, deleted bool) *SubscriptionSyncMessage {
	return &SubscriptionSyncMessage{
		ID:        id,
		Version:   version,
		Deleted:   deleted,
		Timestamp: time.Now(),
	}
}

func (m *SubscriptionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SubscriptionSyncMessageFromJSON(data []byte) (*SubscriptionSyncMessage, error) {
	var msg SubscriptionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
