package audit

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRecent(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	for i := 1; i <= 5; i++ {
		err := l.Append(Event{
			DispatchID: "DSP-1",
			ActorID:    "USR-001",
			Action:     ActionDecisionRecorded,
			Detail:     fmt.Sprintf("decision %d", i),
		})
		require.NoError(t, err)
	}

	events, err := l.Recent(3)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, uint64(5), events[0].Seq)
	assert.Equal(t, uint64(4), events[1].Seq)
	assert.Equal(t, uint64(3), events[2].Seq)
	assert.Equal(t, "decision 5", events[0].Detail)
	assert.False(t, events[0].RecordedAt.IsZero())
}

func TestForDispatch(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(Event{DispatchID: "DSP-1", Action: ActionApproverAdded}))
	require.NoError(t, l.Append(Event{DispatchID: "DSP-2", Action: ActionApproverAdded}))
	require.NoError(t, l.Append(Event{DispatchID: "DSP-1", Action: ActionDecisionRecorded}))

	events, err := l.ForDispatch("DSP-1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Oldest first.
	assert.Equal(t, ActionApproverAdded, events[0].Action)
	assert.Equal(t, ActionDecisionRecorded, events[1].Action)

	other, err := l.ForDispatch("DSP-3")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSequenceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, l.Append(Event{Action: ActionDispatchCreated}))
	require.NoError(t, l.Append(Event{Action: ActionDispatchEmitted}))
	require.NoError(t, l.Close())

	l, err = Open(dir)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(Event{Action: ActionDispatchCompleted}))

	events, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(3), events[0].Seq)
}

func TestRecentBounds(t *testing.T) {
	l, err := Open(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Append(Event{Action: ActionDispatchCreated}))
	require.NoError(t, l.Append(Event{Action: ActionDispatchEmitted}))

	// n far beyond the event count must not over-allocate or fail.
	events, err := l.Recent(math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = l.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = l.Recent(-7)
	require.NoError(t, err)
	assert.Empty(t, events)
}
