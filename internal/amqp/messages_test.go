package amqp

import (
	"testing"
)

func TestSubscriptionSyncMessageRoundTrip(t *testing.T) {
	msg := NewSubscriptionSyncMessage("sub-123", 4, true)

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := SubscriptionSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}

	if got.ID != "sub-123" {
		t.Errorf("ID = %q, want %q", got.ID, "sub-123")
	}
	if got.Version != 4 {
		t.Errorf("Version = %d, want 4", got.Version)
	}
	if !got.Deleted {
		t.Error("Deleted = false, want true")
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestSubscriptionSyncMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := SubscriptionSyncMessageFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed body")
	}
}
