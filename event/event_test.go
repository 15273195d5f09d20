package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fielder/attribute"
)

func TestNewChangeEvent(t *testing.T) {
	e := New(ActionAttributeCreated, 3, attribute.KindEpic, 41, "admin",
		map[string]string{"name": "Risk"})

	_, err := uuid.Parse(e.EventID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), e.ProjectID)
	assert.Equal(t, "epic", e.Kind)
	assert.Equal(t, int64(41), e.SubjectID)
	assert.JSONEq(t, `{"name":"Risk"}`, e.Payload)
	assert.False(t, e.OccurredAt.IsZero())
}

func TestChangeEventRoundTrip(t *testing.T) {
	e := New(ActionValuesUpdated, 1, attribute.KindTask, 9, "bot", nil)

	data, err := e.MarshalBinary()
	require.NoError(t, err)

	var back ChangeEvent
	require.NoError(t, back.UnmarshalBinary(data))
	assert.Equal(t, e.EventID, back.EventID)
	assert.Equal(t, e.Action, back.Action)
	assert.True(t, e.OccurredAt.Equal(back.OccurredAt))

	assert.Len(t, e.ToExec(), 8)
	assert.Contains(t, e.SQL(), "INSERT INTO attribute_events")
}
