package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"guidecache/pkg/config"
	"guidecache/pkg/fetch"
	"guidecache/pkg/manifest"
	"guidecache/pkg/metadata"
	"guidecache/pkg/models"
	"guidecache/pkg/store"
)

const schedRoomsJSON = `[
	{"image":"r1.jpg","paintings":[{"image":"p11.jpg"},{}]},
	{"paintings":[{}]}
]`

// originStub serves canned bodies per path and records fetch counts.
type originStub struct {
	mu    sync.Mutex
	body  map[string][]byte
	fail  map[string]bool
	calls map[string]int
	gate  chan struct{} // when set, asset fetches block until closed
}

func newOriginStub() *originStub {
	return &originStub{
		body:  map[string][]byte{"/data/en-GB_rooms.json": []byte(schedRoomsJSON)},
		fail:  map[string]bool{},
		calls: map[string]int{},
	}
}

func (o *originStub) Fetch(path string) (*fetch.Result, error) {
	if o.gate != nil {
		<-o.gate
	}
	return o.fetch(path)
}

func (o *originStub) FetchTimeout(path string, d time.Duration) (*fetch.Result, error) {
	return o.fetch(path)
}

func (o *originStub) fetch(path string) (*fetch.Result, error) {
	o.mu.Lock()
	o.calls[path]++
	failed := o.fail[path]
	body, ok := o.body[path]
	o.mu.Unlock()
	if failed {
		return nil, errors.New("origin unreachable")
	}
	if !ok {
		body = []byte("content of " + path)
	}
	ct := "application/octet-stream"
	if path == "/data/en-GB_rooms.json" {
		ct = "application/json"
	}
	return &fetch.Result{Status: 200, ContentType: ct, Body: body}, nil
}

func (o *originStub) count(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[path]
}

func testCfg() config.SchedulerConfig {
	return config.SchedulerConfig{
		HeadBatchSize:   3,
		TailChunkSize:   2,
		TailDelay:       config.Duration(time.Millisecond),
		TailRPS:         10000,
		TailBurst:       100,
		HeadConcurrency: 2,
	}
}

func openTest(t *testing.T) {
	t.Helper()
	require.NoError(t, store.Open(t.TempDir()))
	t.Cleanup(func() { _ = store.Close() })
	metadata.Load()
}

func waitRun(t *testing.T, run *Run) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, run.Wait(ctx))
}

func TestRunCachesEverythingAndMarksLocale(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	s := New(origin, testCfg())

	run, err := s.Trigger(context.Background(), "en-GB", nil)
	require.NoError(t, err)
	waitRun(t, run)

	rooms, err := models.ParseRooms([]byte(schedRoomsJSON))
	require.NoError(t, err)
	assets := manifest.Build("en-GB", rooms)
	require.True(t, Coverage(assets), "every manifest asset must be cached")
	require.True(t, metadata.IsFullyCached("en-GB"))
	require.Equal(t, 0, run.Summary.Failed)
	require.False(t, s.Running("en-GB"), "run slot must be released")
}

func TestRetriggerIsIdempotent(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	s := New(origin, testCfg())

	run, err := s.Trigger(context.Background(), "en-GB", nil)
	require.NoError(t, err)
	waitRun(t, run)
	audioCalls := origin.count("/audio/en-GB.room1.mp3")
	require.Equal(t, 1, audioCalls)

	run2, err := s.Trigger(context.Background(), "en-GB", nil)
	require.NoError(t, err)
	waitRun(t, run2)
	require.Equal(t, 0, run2.Summary.Total, "fully cached locale has an empty plan")
	require.Equal(t, audioCalls, origin.count("/audio/en-GB.room1.mp3"), "cached assets must not be refetched")
}

func TestPartialFailureLeavesLocaleUnmarked(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.fail["/audio/en-GB.room2.mp3"] = true
	s := New(origin, testCfg())

	run, err := s.Trigger(context.Background(), "en-GB", nil)
	require.NoError(t, err)
	waitRun(t, run)

	require.Greater(t, run.Summary.Failed, 0)
	require.False(t, metadata.IsFullyCached("en-GB"), "partial run must not be marked fully cached")

	// origin recovers; a new trigger fetches only the missing asset
	origin.mu.Lock()
	origin.fail["/audio/en-GB.room2.mp3"] = false
	before := map[string]int{}
	for k, v := range origin.calls {
		before[k] = v
	}
	origin.mu.Unlock()

	run2, err := s.Trigger(context.Background(), "en-GB", nil)
	require.NoError(t, err)
	waitRun(t, run2)

	require.Equal(t, 1, run2.Summary.Total)
	require.Equal(t, 0, run2.Summary.Failed)
	require.True(t, metadata.IsFullyCached("en-GB"))
	require.Equal(t, before["/audio/en-GB.room1.mp3"], origin.count("/audio/en-GB.room1.mp3"))
}

func TestConcurrentTriggerDropped(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.gate = make(chan struct{})
	s := New(origin, testCfg())

	started := make(chan *Run, 1)
	errs := make(chan error, 1)
	go func() {
		run, err := s.Trigger(context.Background(), "en-GB", nil)
		errs <- err
		started <- run
	}()

	// wait until the first run holds the slot
	require.Eventually(t, func() bool { return s.Running("en-GB") },
		5*time.Second, time.Millisecond)

	_, err := s.Trigger(context.Background(), "en-GB", nil)
	require.ErrorIs(t, err, ErrRunInProgress)

	close(origin.gate)
	require.NoError(t, <-errs)
	run := <-started
	waitRun(t, run)
	require.False(t, s.Running("en-GB"))
}

func TestTriggerUnavailableData(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	origin.fail["/data/en-GB_rooms.json"] = true
	s := New(origin, testCfg())

	_, err := s.Trigger(context.Background(), "en-GB", nil)
	require.ErrorIs(t, err, manifest.ErrUnavailable)
	require.False(t, s.Running("en-GB"), "failed admission must release the slot")
}

func TestHeadBatchSettledBeforeReturn(t *testing.T) {
	openTest(t)
	origin := newOriginStub()
	pos := &models.Position{RoomID: "room1", PaintingID: "room1-p1", Locale: "en-GB"}
	s := New(origin, testCfg())

	run, err := s.Trigger(context.Background(), "en-GB", pos)
	require.NoError(t, err)
	// the highest priority asset is in the head batch and already cached
	require.True(t, store.Has(store.Assets, "/audio/en-GB.room1-p1.mp3"))
	waitRun(t, run)
}
