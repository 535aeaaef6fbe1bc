package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_AppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)

	require.NoError(t, Record(context.Background(), logger,
		EventBreakGlassElevation, StatusSuccess, "u1", "jonphipps", "elevated via allow-list"))
	require.NoError(t, Record(context.Background(), logger,
		EventAuthorizationDenied, StatusDenied, "u2", "", "edit denied on isbd"))
	require.NoError(t, logger.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}

	require.Len(t, events, 2)
	assert.Equal(t, EventBreakGlassElevation, events[0].EventType)
	assert.Equal(t, "jonphipps", events[0].Username)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, StatusDenied, events[1].Status)
}

func TestFromContext_FallsBackToNop(t *testing.T) {
	logger := FromContext(context.Background())
	assert.NoError(t, logger.Log(context.Background(), &Event{EventType: EventSessionResolved}))

	ctx := WithLogger(context.Background(), NopLogger{})
	assert.NotNil(t, FromContext(ctx))
}
