package agents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/internal/database"
)

type broadcastEvent struct {
	Room     string
	Message  string
	Username string
	Partial  bool
}

// recorder captures hub calls; sessions run on their own goroutines.
type recorder struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (r *recorder) Broadcast(room, message, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcastEvent{room, message, username, false})
}

func (r *recorder) BroadcastPartial(room, message, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, broadcastEvent{room, message, username, true})
}

func (r *recorder) all() []broadcastEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcastEvent(nil), r.events...)
}

// stubGenerator scripts the generation client.
type stubGenerator struct {
	deltas       []string
	streamErr    error // returned after all deltas are emitted
	completeText string
	completeErr  error
	blockOnCtx   bool // simulate a stall until the context expires
}

func (g *stubGenerator) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	if g.completeErr != nil {
		return "", g.completeErr
	}
	return g.completeText, nil
}

func (g *stubGenerator) Stream(ctx context.Context, systemPrompt, userText string, emit func(string)) error {
	if g.blockOnCtx {
		<-ctx.Done()
		return ctx.Err()
	}
	for _, d := range g.deltas {
		emit(d)
	}
	return g.streamErr
}

func testDirectory(t *testing.T) (*Directory, *database.DB) {
	t.Helper()
	db, err := database.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDirectory(db), db
}

func newTestCoordinator(t *testing.T, gen Generator) (*Coordinator, *recorder, *database.DB) {
	t.Helper()
	dir, db := testDirectory(t)
	rec := &recorder{}
	return NewCoordinator(dir, gen, rec, time.Second), rec, db
}

func TestResolveOrCreateCreatesDefaultProfile(t *testing.T) {
	dir, _ := testDirectory(t)

	agent, err := dir.ResolveOrCreate("Bot")
	require.NoError(t, err)
	assert.Equal(t, "Bot", agent.Name)
	assert.Equal(t, DefaultPersonality, agent.Personality)
	assert.Empty(t, agent.Context)
	assert.True(t, agent.IsActive)

	again, err := dir.ResolveOrCreate("Bot")
	require.NoError(t, err)
	assert.Equal(t, agent.ID, again.ID, "second resolution must observe the first profile")
}

func TestResolveOrCreateConcurrentSameName(t *testing.T) {
	dir, _ := testDirectory(t)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agent, err := dir.ResolveOrCreate("Newcomer")
			if assert.NoError(t, err) {
				ids[i] = agent.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "all resolutions must converge on one profile")
	}
}

func TestPlainMessageTriggersNothing(t *testing.T) {
	coord, rec, _ := newTestCoordinator(t, &stubGenerator{})

	coord.HandleMessage("lobby", "alice", "hello everyone")

	assert.Empty(t, rec.all())
}

func TestMentionStreamsPartialsInOrder(t *testing.T) {
	gen := &stubGenerator{deltas: []string{"Hi", " there", "!"}}
	coord, rec, _ := newTestCoordinator(t, gen)

	coord.HandleMessage("lobby", "alice", "@Bot hi")

	events := rec.all()
	require.Len(t, events, 4)

	wantPartials := []string{"Hi", "Hi there", "Hi there!"}
	for i, want := range wantPartials {
		assert.Equal(t, want, events[i].Message)
		assert.True(t, events[i].Partial)
		assert.Equal(t, "Bot", events[i].Username)
		assert.Equal(t, "lobby", events[i].Room)
	}

	final := events[3]
	assert.False(t, final.Partial)
	assert.Equal(t, "Hi there!", final.Message, "completion must carry the last partial's text")
	assert.Equal(t, "Bot", final.Username)
}

func TestMentionAutoCreatesAgent(t *testing.T) {
	gen := &stubGenerator{deltas: []string{"hello"}}
	coord, _, db := newTestCoordinator(t, gen)

	coord.HandleMessage("lobby", "alice", "@Fresh hi")

	agent, err := db.GetAgentByName("Fresh")
	require.NoError(t, err)
	assert.Equal(t, DefaultPersonality, agent.Personality)
}

func TestStreamFailureAfterPartialOutput(t *testing.T) {
	gen := &stubGenerator{deltas: []string{"par"}, streamErr: errors.New("upstream reset")}
	coord, rec, _ := newTestCoordinator(t, gen)

	coord.HandleMessage("lobby", "alice", "@Bot hi")

	events := rec.all()
	require.Len(t, events, 2)
	assert.True(t, events[0].Partial)
	assert.Equal(t, "par", events[0].Message)

	notice := events[1]
	assert.False(t, notice.Partial)
	assert.Equal(t, SystemUser, notice.Username)
	assert.Contains(t, notice.Message, "Bot")
}

func TestStreamFailureBeforeAnyOutput(t *testing.T) {
	gen := &stubGenerator{streamErr: errors.New("connect refused")}
	coord, rec, _ := newTestCoordinator(t, gen)

	coord.HandleMessage("lobby", "alice", "@Bot hi")

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, SystemUser, events[0].Username)
	assert.Contains(t, events[0].Message, "Bot")
}

func TestStreamTimeoutBecomesFailure(t *testing.T) {
	gen := &stubGenerator{blockOnCtx: true}
	dir, _ := testDirectory(t)
	rec := &recorder{}
	coord := NewCoordinator(dir, gen, rec, 50*time.Millisecond)

	done := make(chan struct{})
	go func() {
		coord.HandleMessage("lobby", "alice", "@Bot hi")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stalled generation was not converted into a failure")
	}

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, SystemUser, events[0].Username)
}

func TestCommandSingleShot(t *testing.T) {
	gen := &stubGenerator{completeText: "4"}
	coord, rec, _ := newTestCoordinator(t, gen)

	coord.HandleMessage("lobby", "alice", "iask(What is 2+2?)")

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, "4", events[0].Message)
	assert.Equal(t, "AI_Ask", events[0].Username)
	assert.False(t, events[0].Partial)
}

func TestCommandFailureNotice(t *testing.T) {
	gen := &stubGenerator{completeErr: errors.New("quota exceeded")}
	coord, rec, _ := newTestCoordinator(t, gen)

	coord.HandleMessage("lobby", "alice", "iask(What is 2+2?)")

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, SystemUser, events[0].Username)
	assert.Contains(t, events[0].Message, "AI_Ask")
}

func TestInactiveAgentIgnored(t *testing.T) {
	gen := &stubGenerator{deltas: []string{"should not appear"}}
	coord, rec, db := newTestCoordinator(t, gen)

	agent, err := db.CreateAgent("Sleeper", "quiet", "", false)
	require.NoError(t, err)
	require.False(t, agent.IsActive)

	coord.HandleMessage("lobby", "alice", "@Sleeper wake up")

	assert.Empty(t, rec.all())
}

func TestDirectoryFailureNotice(t *testing.T) {
	gen := &stubGenerator{deltas: []string{"never"}}
	coord, rec, db := newTestCoordinator(t, gen)
	db.Close()

	coord.HandleMessage("lobby", "alice", "@Bot hi")

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, SystemUser, events[0].Username)
	assert.Contains(t, events[0].Message, "Bot")
}

func TestMultipleMentionsEachGetASession(t *testing.T) {
	gen := &stubGenerator{deltas: []string{"pong"}}
	coord, rec, _ := newTestCoordinator(t, gen)

	coord.HandleMessage("lobby", "alice", "@Alpha @Beta ping")

	finals := map[string]string{}
	for _, e := range rec.all() {
		if !e.Partial {
			finals[e.Username] = e.Message
		}
	}
	assert.Equal(t, map[string]string{"Alpha": "pong", "Beta": "pong"}, finals)
}
