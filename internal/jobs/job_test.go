package jobs

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager()

	j := m.Create("artist-credit-index")
	_, err := uuid.Parse(j.ID)
	require.NoError(t, err, "job ID must be a UUID")
	require.Equal(t, StatusPending, j.Status)
	require.False(t, m.Ready("artist-credit-index"))

	m.Start(j.ID)
	got, ok := m.Get(j.ID)
	require.True(t, ok)
	require.Equal(t, StatusRunning, got.Status)
	require.False(t, got.StartedAt.IsZero())

	m.Update(j.ID, func(j *Job) { j.Rows = 10; j.Skipped = 2 })
	m.Finish(j.ID, nil)

	got, _ = m.Latest("artist-credit-index")
	require.Equal(t, StatusFinished, got.Status)
	require.Equal(t, 10, got.Rows)
	require.Equal(t, 2, got.Skipped)
	require.True(t, m.Ready("artist-credit-index"))
}

func TestManager_FailureAndRebuild(t *testing.T) {
	m := NewManager()

	first := m.Create("recording-index")
	m.Start(first.ID)
	m.Finish(first.ID, errors.New("connection reset"))

	got, _ := m.Latest("recording-index")
	require.Equal(t, StatusError, got.Status)
	require.Equal(t, "connection reset", got.Error)
	require.False(t, m.Ready("recording-index"))

	second := m.Create("recording-index")
	m.Start(second.ID)
	m.Finish(second.ID, nil)
	require.True(t, m.Ready("recording-index"))

	old, ok := m.Get(first.ID)
	require.True(t, ok)
	require.Equal(t, StatusError, old.Status)
}

func TestManager_UnknownJob(t *testing.T) {
	m := NewManager()
	m.Update("nope", func(j *Job) { t.Fatal("must not be called") })
	_, ok := m.Get("nope")
	require.False(t, ok)
	require.False(t, m.Ready("nope"))
}

func TestManager_ConcurrentReaders(t *testing.T) {
	m := NewManager()
	j := m.Create("idx")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 100; k++ {
				m.Ready("idx")
				m.Get(j.ID)
			}
		}()
	}
	for k := 0; k < 100; k++ {
		m.Update(j.ID, func(j *Job) { j.Rows++ })
	}
	wg.Wait()

	got, _ := m.Get(j.ID)
	require.Equal(t, 100, got.Rows)
}
