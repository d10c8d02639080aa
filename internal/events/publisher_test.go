package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionMessage_KeyedBySession(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	event := NewSessionEvent(EventSessionPaused, 42, at, SessionPausedData{SessionID: 42, UserID: 7, PausedAt: at})

	msg, err := newSessionMessage(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, event.ID, msg.UUID)
	assert.Equal(t, "session.paused", msg.Metadata.Get("event_type"))
	assert.Equal(t, at.Format(time.RFC3339), msg.Metadata.Get("timestamp"))

	key, err := sessionPartitionKey("exam-session-events", msg)
	require.NoError(t, err)
	assert.Equal(t, "42", key)

	var decoded struct {
		Type      EventType `json:"type"`
		SessionID uint      `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, EventSessionPaused, decoded.Type)
	assert.Equal(t, uint(42), decoded.SessionID)
}

func TestSessionPartitionKey_SameSessionSameKey(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	keys := make(map[string]int)
	for _, eventType := range []EventType{EventSessionStarted, EventSessionPaused, EventSessionResumed, EventSessionSubmitted} {
		msg, err := newSessionMessage(context.Background(), NewSessionEvent(eventType, 9, at, nil))
		require.NoError(t, err)
		key, err := sessionPartitionKey("exam-session-events", msg)
		require.NoError(t, err)
		keys[key]++
	}
	assert.Equal(t, map[string]int{"9": 4}, keys)
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, publisher.PublishSessionEvent(context.Background(), NewSessionEvent(EventSessionStarted, 1, at, nil)))
	require.NoError(t, publisher.PublishSessionEvent(context.Background(), NewSessionEvent(EventSessionPaused, 1, at, nil)))
	assert.Len(t, publisher.GetPublishedEvents(), 2)
	assert.Len(t, publisher.EventsOfType(EventSessionPaused), 1)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
}
