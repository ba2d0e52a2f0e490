package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildEvent_RoundTrip(t *testing.T) {
	ev := BuildEvent{BuildID: "b1", Status: "success", Hash: "abc", Duration: 42}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var got BuildEvent
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "b1", got.BuildID)
	assert.Equal(t, "success", got.Status)
	assert.Equal(t, int64(42), got.Duration)
}

func TestNewPublisher_RequiresURL(t *testing.T) {
	_, err := NewPublisher("", "loom.builds")
	require.Error(t, err)
}

func TestPublisher_NilSafe(t *testing.T) {
	var p *Publisher
	// Publishing through a nil publisher is a no-op, not a panic.
	p.Publish(BuildEvent{BuildID: "x"})
	p.Close()
}
