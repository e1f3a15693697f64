package audit

import (
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/tascam-hub-go/internal/db"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	dbPair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { dbPair.Close() })

	return NewRepository(dbPair)
}

func TestRepository_InsertEvent(t *testing.T) {
	repo := setupTestDB(t)

	requestID := "req-123"
	command := "PLY"
	input := WriteEventInput{
		Type:      string(EventCommandSent),
		RequestID: &requestID,
		Command:   &command,
		Message:   "Command acknowledged",
		Payload: map[string]any{
			"frame": "!7PLY",
		},
	}

	event, err := repo.InsertEvent(input)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.NotEmpty(t, event.EventID)
	require.Equal(t, string(EventCommandSent), event.Type)
	require.Equal(t, EventLevelInfo, event.Level) // default level
	require.NotNil(t, event.RequestID)
	require.Equal(t, "req-123", *event.RequestID)
	require.NotNil(t, event.Command)
	require.Equal(t, "PLY", *event.Command)
	require.Equal(t, "Command acknowledged", event.Message)
	require.Equal(t, "!7PLY", event.Payload["frame"])
	require.False(t, event.Timestamp.IsZero())
}

func TestRepository_InsertEvent_WithLevel(t *testing.T) {
	repo := setupTestDB(t)

	level := EventLevelError
	input := WriteEventInput{
		Type:    string(EventCommandFailed),
		Level:   &level,
		Message: "Unit rejected command",
	}

	event, err := repo.InsertEvent(input)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, EventLevelError, event.Level)
}

func TestRepository_InsertEvent_NilPayload(t *testing.T) {
	repo := setupTestDB(t)

	input := WriteEventInput{
		Type:    string(EventSystemStartup),
		Message: "No payload",
	}

	event, err := repo.InsertEvent(input)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.NotNil(t, event.Payload)
	require.Empty(t, event.Payload)
}

func TestRepository_GetEvent(t *testing.T) {
	repo := setupTestDB(t)

	input := WriteEventInput{
		Type:    string(EventSystemStartup),
		Message: "Test message",
	}

	created, err := repo.InsertEvent(input)
	require.NoError(t, err)

	fetched, err := repo.GetEvent(created.EventID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.Equal(t, created.EventID, fetched.EventID)
	require.Equal(t, string(EventSystemStartup), fetched.Type)
	require.Equal(t, "Test message", fetched.Message)
}

func TestRepository_GetEvent_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	event, err := repo.GetEvent("nonexistent-id")
	require.NoError(t, err)
	require.Nil(t, event)
}

func TestRepository_QueryEvents_NoFilters(t *testing.T) {
	repo := setupTestDB(t)

	for i := 0; i < 5; i++ {
		_, err := repo.InsertEvent(WriteEventInput{
			Type:    string(EventRawMessage),
			Message: "Event message",
		})
		require.NoError(t, err)
	}

	events, total, err := repo.QueryEvents(EventQueryFilters{})
	require.NoError(t, err)
	require.Len(t, events, 5)
	require.Equal(t, 5, total)
}

func TestRepository_QueryEvents_WithTypeFilter(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.InsertEvent(WriteEventInput{Type: string(EventConnectionOpened), Message: "A1"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: string(EventConnectionOpened), Message: "A2"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: string(EventConnectionLost), Message: "B1"})
	require.NoError(t, err)

	typeFilter := string(EventConnectionOpened)
	events, total, err := repo.QueryEvents(EventQueryFilters{Type: &typeFilter})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, 2, total)
	for _, e := range events {
		require.Equal(t, string(EventConnectionOpened), e.Type)
	}
}

func TestRepository_QueryEvents_WithLevelFilter(t *testing.T) {
	repo := setupTestDB(t)

	infoLevel := EventLevelInfo
	errorLevel := EventLevelError

	_, err := repo.InsertEvent(WriteEventInput{Type: string(EventSystemStartup), Level: &infoLevel, Message: "Info 1"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: string(EventSystemError), Level: &errorLevel, Message: "Error 1"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: string(EventSystemError), Level: &errorLevel, Message: "Error 2"})
	require.NoError(t, err)

	events, total, err := repo.QueryEvents(EventQueryFilters{Level: &errorLevel})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, 2, total)
	for _, e := range events {
		require.Equal(t, EventLevelError, e.Level)
	}
}

func TestRepository_QueryEvents_WithCommandFilter(t *testing.T) {
	repo := setupTestDB(t)

	play := "PLY"
	stop := "STP"

	_, err := repo.InsertEvent(WriteEventInput{Type: string(EventCommandSent), Command: &play, Message: "M1"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: string(EventCommandSent), Command: &play, Message: "M2"})
	require.NoError(t, err)
	_, err = repo.InsertEvent(WriteEventInput{Type: string(EventCommandSent), Command: &stop, Message: "M3"})
	require.NoError(t, err)

	events, total, err := repo.QueryEvents(EventQueryFilters{Command: &play})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, 2, total)
}

func TestRepository_QueryEvents_Pagination(t *testing.T) {
	repo := setupTestDB(t)

	for i := 0; i < 7; i++ {
		_, err := repo.InsertEvent(WriteEventInput{
			Type:    string(EventRawMessage),
			Message: "Event",
		})
		require.NoError(t, err)
	}

	events, total, err := repo.QueryEvents(EventQueryFilters{Limit: 3})
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, 7, total)

	events, total, err = repo.QueryEvents(EventQueryFilters{Limit: 3, Offset: 6})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 7, total)
}

func TestRepository_PruneOldEvents(t *testing.T) {
	repo := setupTestDB(t)

	// One recent event plus one backdated beyond retention.
	_, err := repo.InsertEvent(WriteEventInput{Type: string(EventRawMessage), Message: "Fresh"})
	require.NoError(t, err)

	old := time.Now().UTC().AddDate(0, 0, -100).Format(time.RFC3339)
	_, err = repo.writer.Exec(`
		INSERT INTO player_events (event_id, timestamp, type, level, message, payload)
		VALUES ('old-event', ?, 'RAW_MESSAGE', 'INFO', 'Stale', '{}')
	`, old)
	require.NoError(t, err)

	deleted, err := repo.PruneOldEvents(90)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	events, total, err := repo.QueryEvents(EventQueryFilters{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "Fresh", events[0].Message)
}
