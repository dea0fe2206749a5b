package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStartsInStartingAndQuiescent(t *testing.T) {
	m := New()
	snap := m.Current()
	assert.Equal(t, HealthStarting, snap.Health)
	assert.True(t, snap.Quiescent)
}

func TestSetHealthReadyClearsProgressAndMarksQuiescent(t *testing.T) {
	m := New()
	m.BeginWork()
	m.ReportProgress(Progress{Done: 1, Total: 10})
	m.SetHealth(HealthReady, "ready")

	snap := m.Current()
	assert.Equal(t, HealthReady, snap.Health)
	assert.True(t, snap.Quiescent)
	assert.Equal(t, Progress{}, snap.Progress)
}

func TestBeginWorkAndEndWorkToggleQuiescence(t *testing.T) {
	m := New()
	m.BeginWork()
	assert.False(t, m.Current().Quiescent)
	m.EndWork()
	assert.True(t, m.Current().Quiescent)
}

func TestReportErrorSetsDegradedAndClearErrorRestoresReady(t *testing.T) {
	m := New()
	m.ReportError("compiler", "boom")
	snap := m.Current()
	assert.Equal(t, HealthDegraded, snap.Health)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, "boom", snap.LastError.Message)
	assert.Equal(t, "compiler", snap.LastError.Source)

	m.ClearError()
	snap = m.Current()
	assert.Equal(t, HealthReady, snap.Health)
	assert.Nil(t, snap.LastError)
}

func TestSubscribeReceivesCurrentSnapshotImmediately(t *testing.T) {
	m := New()
	ch := m.Subscribe()
	select {
	case snap := <-ch:
		assert.Equal(t, HealthStarting, snap.Health)
	case <-time.After(time.Second):
		t.Fatal("expected immediate snapshot on subscribe")
	}
}

func TestSubscribeReceivesHealthTransitionsUnthrottled(t *testing.T) {
	m := New()
	ch := m.Subscribe()
	<-ch // initial snapshot

	m.SetHealth(HealthDegraded, "oops")
	select {
	case snap := <-ch:
		assert.Equal(t, HealthDegraded, snap.Health)
	case <-time.After(time.Second):
		t.Fatal("expected notification for health transition")
	}
}

func TestReportProgressThrottlesRapidUpdates(t *testing.T) {
	m := New()
	ch := m.Subscribe()
	<-ch // initial snapshot

	m.ReportProgress(Progress{Done: 1, Total: 100})
	select {
	case snap := <-ch:
		assert.Equal(t, 1, snap.Progress.Done)
	case <-time.After(time.Second):
		t.Fatal("expected first progress update to notify")
	}

	// Immediately-following updates within the throttle window should
	// not produce additional notifications.
	m.ReportProgress(Progress{Done: 2, Total: 100})
	m.ReportProgress(Progress{Done: 3, Total: 100})
	select {
	case snap := <-ch:
		t.Fatalf("did not expect a throttled notification, got %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberDoesNotBlockNotify(t *testing.T) {
	m := New()
	ch := m.Subscribe()
	// Drain the initial snapshot then never read again; the channel has
	// a small buffer, so further notifies must not block the caller.
	<-ch

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			m.SetHealth(HealthReady, "ready")
			m.SetHealth(HealthDegraded, "degraded")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notify blocked on a slow subscriber")
	}
}
