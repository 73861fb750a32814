package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/parleychat/parley/internal/logger"
	"github.com/parleychat/parley/internal/trigger"
)

// SystemUser attributes error notices broadcast by the coordinator.
const SystemUser = "System"

// Generator is the generation-client boundary. Stream produces a lazy,
// finite, non-restartable sequence of text deltas and may fail at any
// point, including after partial output.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
	Stream(ctx context.Context, systemPrompt, userText string, emit func(delta string)) error
}

// Broadcaster is the slice of the hub the coordinator needs.
type Broadcaster interface {
	Broadcast(room, message, username string)
	BroadcastPartial(room, message, username string)
}

// Coordinator classifies inbound messages and drives agent invocations:
// command form through a single-shot completion, mention form through a
// streaming session per mentioned agent.
type Coordinator struct {
	directory *Directory
	gen       Generator
	caster    Broadcaster
	timeout   time.Duration
}

func NewCoordinator(directory *Directory, gen Generator, caster Broadcaster, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Coordinator{
		directory: directory,
		gen:       gen,
		caster:    caster,
		timeout:   timeout,
	}
}

// HandleMessage implements hub.MessageHandler. The hub calls it on a
// fresh goroutine per message; it returns once every invocation the
// message triggered has finished.
func (c *Coordinator) HandleMessage(room, username, text string) {
	tr := trigger.Classify(text)

	switch tr.Kind {
	case trigger.Command:
		c.runCommand(room, tr)
	case trigger.Mentions:
		// Each mention is an independent session; partials from
		// different agents may interleave, within one session they
		// stay in generation order.
		var wg sync.WaitGroup
		for _, mention := range tr.Mentions {
			wg.Add(1)
			go func(m trigger.Mention) {
				defer wg.Done()
				c.runSession(room, m)
			}(mention)
		}
		wg.Wait()
	}
}

// runCommand performs the non-streaming single-shot variant and
// broadcasts exactly one envelope from the command's pseudo-user.
func (c *Coordinator) runCommand(room string, tr trigger.Trigger) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	reply, err := c.gen.Complete(ctx, commandPrompt(tr.Verb), tr.Argument)
	if err != nil {
		logger.Error("Command %s failed: %v", tr.Verb, err)
		c.caster.Broadcast(room, fmt.Sprintf("%s could not answer right now", tr.PseudoUser()), SystemUser)
		return
	}
	c.caster.Broadcast(room, reply, tr.PseudoUser())
}

// session states for one streaming invocation.
type sessionState int

const (
	statePending sessionState = iota
	stateStreaming
	stateCompleted
	stateFailed
)

// session is the transient state of one in-progress agent response.
// Accumulated text only ever grows; every partial broadcast carries the
// whole accumulation so far.
type session struct {
	agentName   string
	room        string
	state       sessionState
	accumulated strings.Builder
}

// runSession drives one agent invocation end to end. Failures are
// reported in-band and never unwind into the caller.
func (c *Coordinator) runSession(room string, mention trigger.Mention) {
	agent, err := c.directory.ResolveOrCreate(mention.Agent)
	if err != nil {
		logger.Error("Agent directory lookup failed: %v", err)
		c.caster.Broadcast(room, fmt.Sprintf("Agent %s is unavailable right now", mention.Agent), SystemUser)
		return
	}
	if !agent.IsActive {
		logger.Info("Agent %s is inactive, ignoring mention in %s", agent.Name, room)
		return
	}

	s := &session{agentName: agent.Name, room: room, state: statePending}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	logger.Stream(agent.Name, room, "started")
	s.state = stateStreaming

	err = c.gen.Stream(ctx, agentPrompt(agent), mention.Remainder, func(delta string) {
		s.accumulated.WriteString(delta)
		c.caster.BroadcastPartial(room, s.accumulated.String(), agent.Name)
	})
	if err != nil {
		s.state = stateFailed
		logger.Stream(agent.Name, room, "failed")
		c.caster.Broadcast(room, fmt.Sprintf("Agent %s failed to respond", agent.Name), SystemUser)
		return
	}

	s.state = stateCompleted
	logger.Stream(agent.Name, room, "completed")

	// Completion marker: a non-partial envelope carrying exactly the
	// text of the last partial.
	if final := s.accumulated.String(); final != "" {
		c.caster.Broadcast(room, final, agent.Name)
	}
}
