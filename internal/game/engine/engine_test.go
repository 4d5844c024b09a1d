package engine

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meegol/SIC-Gambling/internal/websocket"
)

// recordingHub captures broadcasts instead of writing to sockets.
type recordingHub struct {
	mu   sync.Mutex
	sent []websocket.OutgoingMessage
	to   [][]string
}

func (h *recordingHub) BroadcastToPlayers(ids []string, msg websocket.OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, msg)
	h.to = append(h.to, append([]string(nil), ids...))
}

func (h *recordingHub) ClientByID(string) (*websocket.Client, bool) { return nil, false }
func (h *recordingHub) SendToPlayer(string, websocket.OutgoingMessage) {}
func (h *recordingHub) Close()                                         {}

func (h *recordingHub) messages() []websocket.OutgoingMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]websocket.OutgoingMessage(nil), h.sent...)
}

// counter is a minimal game: "inc" bumps a value and arms a timer that
// resets it, "noop" is always rejected.
type counter struct {
	members []string
	value   int
	epoch   uint64
	fired   int
}

func (c *counter) Join(conn, _ string) Outcome {
	c.members = append(c.members, conn)
	return Changed()
}

func (c *counter) Leave(conn string) Outcome {
	for i, m := range c.members {
		if m == conn {
			c.members = append(c.members[:i], c.members[i+1:]...)
			return Changed()
		}
	}
	return Ignored()
}

func (c *counter) Act(_ string, intent any) Outcome {
	if intent != "inc" {
		return Ignored()
	}
	c.value++
	c.epoch++
	return Changed(Timer{Kind: "reset", After: time.Second, Epoch: c.epoch})
}

func (c *counter) Fire(t Timer) Outcome {
	if t.Epoch != c.epoch {
		return Ignored()
	}
	c.fired++
	c.value = 0
	return Changed()
}

func (c *counter) Snapshot() any     { return c.value }
func (c *counter) Members() []string { return append([]string(nil), c.members...) }
func (c *counter) Phase() string {
	if c.value > 0 {
		return "COUNTING"
	}
	return "IDLE"
}

func newTestEngine(t *testing.T, clock quartz.Clock) (*Engine, *counter, *recordingHub) {
	t.Helper()
	g := &counter{}
	hub := &recordingHub{}
	e := NewEngine(g, hub, Options{
		Game:   "counter",
		Code:   "ROOM",
		Event:  "counter-update",
		Clock:  clock,
		Logger: log.New(io.Discard),
	})
	e.Start()
	t.Cleanup(e.Stop)
	return e, g, hub
}

func snapshot(t *testing.T, e *Engine) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := e.Snapshot(ctx)
	require.NoError(t, err)
	return v.(int)
}

func TestEngineBroadcastsInSubmissionOrder(t *testing.T) {
	e, _, hub := newTestEngine(t, quartz.NewMock(t))

	e.Join("c1", "Ann")
	e.Join("c2", "Bob")
	e.EnqueueAction("c1", "inc")
	e.EnqueueAction("c2", "noop")
	e.EnqueueAction("c2", "inc")
	require.Equal(t, 2, snapshot(t, e))

	msgs := hub.messages()
	require.Len(t, msgs, 4, "rejected intent must not broadcast")
	var values []int
	for _, m := range msgs {
		assert.Equal(t, "counter-update", m.Event)
		values = append(values, m.Data.(int))
	}
	assert.Equal(t, []int{0, 0, 1, 2}, values)
	assert.Equal(t, []string{"c1", "c2"}, hub.to[3])

	st := e.Status()
	assert.Equal(t, "COUNTING", st.Phase)
	assert.Equal(t, 2, st.Players)
}

func TestEngineTimerFires(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock := quartz.NewMock(t)
	e, g, _ := newTestEngine(t, mClock)

	e.Join("c1", "Ann")
	e.EnqueueAction("c1", "inc")
	require.Equal(t, 1, snapshot(t, e))

	mClock.Advance(time.Second).MustWait(ctx)
	assert.Equal(t, 0, snapshot(t, e))
	assert.Equal(t, 1, g.fired)
	assert.Equal(t, "IDLE", e.Status().Phase)
}

func TestEngineReplacesTimerOfSameKind(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock := quartz.NewMock(t)
	e, g, _ := newTestEngine(t, mClock)

	e.Join("c1", "Ann")
	e.EnqueueAction("c1", "inc")
	require.Equal(t, 1, snapshot(t, e))
	mClock.Advance(500 * time.Millisecond).MustWait(ctx)
	e.EnqueueAction("c1", "inc")
	require.Equal(t, 2, snapshot(t, e))

	// the first timer was stopped, so nothing fires at the original deadline
	mClock.Advance(500 * time.Millisecond).MustWait(ctx)
	assert.Equal(t, 2, snapshot(t, e))

	mClock.Advance(500 * time.Millisecond).MustWait(ctx)
	assert.Equal(t, 0, snapshot(t, e))
	assert.Equal(t, 1, g.fired)
}

func TestEngineStop(t *testing.T) {
	e, _, hub := newTestEngine(t, quartz.NewMock(t))
	e.Join("c1", "Ann")
	snapshot(t, e)

	e.Stop()
	e.Stop()
	e.EnqueueAction("c1", "inc")
	_, err := e.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
	assert.Len(t, hub.messages(), 1)
}

func TestEngineStopWithoutStart(t *testing.T) {
	e := NewEngine(&counter{}, &recordingHub{}, Options{Game: "counter", Logger: log.New(io.Discard)})
	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked on an engine that never started")
	}
}

func TestEngineOnChange(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []Status
	)
	e := NewEngine(&counter{}, &recordingHub{}, Options{
		Game:   "counter",
		Code:   "ROOM",
		Clock:  quartz.NewMock(t),
		Logger: log.New(io.Discard),
		OnChange: func(st Status) {
			mu.Lock()
			seen = append(seen, st)
			mu.Unlock()
		},
	})
	e.Start()
	defer e.Stop()

	e.Join("c1", "Ann")
	e.Leave("c1")
	e.Leave("c1")
	snapshot(t, e)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, 1, seen[0].Players)
	assert.Equal(t, 0, seen[1].Players)
	assert.Equal(t, "ROOM", seen[1].Code)
}

func TestEngineSnapshotHonoursContext(t *testing.T) {
	e := NewEngine(&counter{}, &recordingHub{}, Options{Game: "counter", Logger: log.New(io.Discard)})
	defer e.Stop()
	// not started: the inbox accepts the command but nobody answers
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
