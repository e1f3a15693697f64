package scheduler

import (
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu       sync.Mutex
	onCalls  int
	offCalls int
	result   bool
}

func (f *fakePlayer) PowerOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCalls++
	return f.result
}

func (f *fakePlayer) PowerOff() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offCalls++
	return f.result
}

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestNewRunner_RejectsBadCron(t *testing.T) {
	_, err := NewRunner(discard(), &fakePlayer{}, "not a cron", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POWER_ON_CRON")

	_, err = NewRunner(discard(), &fakePlayer{}, "", "61 99 * * *")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POWER_OFF_CRON")
}

func TestNewRunner_EmptySpecsDisableRoutines(t *testing.T) {
	r, err := NewRunner(discard(), &fakePlayer{}, "", "")
	require.NoError(t, err)
	assert.Empty(t, r.routines)

	// Start/Stop on an empty runner must not hang.
	r.Start()
	r.Stop()
}

func TestNextFire_PicksEarliestRoutine(t *testing.T) {
	r, err := NewRunner(discard(), &fakePlayer{}, "0 18 * * *", "30 23 * * *")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	at, rt := r.nextFire(now)
	require.NotNil(t, rt)
	assert.Equal(t, "power_on", rt.name)
	assert.Equal(t, time.Date(2025, 6, 1, 18, 0, 0, 0, time.Local), at)

	// After the evening slot the off routine is next.
	now = time.Date(2025, 6, 1, 19, 0, 0, 0, time.Local)
	at, rt = r.nextFire(now)
	assert.Equal(t, "power_off", rt.name)
	assert.Equal(t, time.Date(2025, 6, 1, 23, 30, 0, 0, time.Local), at)
}

func TestNextFire_RollsToNextDay(t *testing.T) {
	r, err := NewRunner(discard(), &fakePlayer{}, "0 18 * * *", "")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 23, 59, 0, 0, time.Local)
	at, rt := r.nextFire(now)
	assert.Equal(t, "power_on", rt.name)
	assert.Equal(t, time.Date(2025, 6, 2, 18, 0, 0, 0, time.Local), at)
}

func TestFire_ReportsResult(t *testing.T) {
	player := &fakePlayer{result: true}
	r, err := NewRunner(discard(), player, "0 18 * * *", "30 23 * * *")
	require.NoError(t, err)

	var mu sync.Mutex
	results := map[string]bool{}
	r.OnResult = func(name string, success bool) {
		mu.Lock()
		defer mu.Unlock()
		results[name] = success
	}

	r.fire(r.routines[0])
	player.result = false
	r.fire(r.routines[1])

	assert.Equal(t, 1, player.onCalls)
	assert.Equal(t, 1, player.offCalls)
	assert.Equal(t, map[string]bool{"power_on": true, "power_off": false}, results)
}

func TestRunner_StopUnblocksLoop(t *testing.T) {
	r, err := NewRunner(discard(), &fakePlayer{}, "0 18 * * *", "")
	require.NoError(t, err)

	r.Start()

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
