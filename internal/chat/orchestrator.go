// Package chat runs the question/answer loop: it keeps the transcript,
// calls the model, decodes and renders its answer, and arms the simulation
// when the answer describes one.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/commlab/internal/logs"
	"github.com/san-kum/commlab/internal/mathrender"
	"github.com/san-kum/commlab/internal/protocol"
	"github.com/san-kum/commlab/internal/remote"
)

const (
	PendingText = "正在思考中..."
	ApologyText = "抱歉，连接AI助手时发生错误。请检查服务器是否正在运行，或API地址是否正确配置。"
)

var ErrEmptyInput = errors.New("chat: empty input")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry. Raw holds the user's text, or the answer
// text with the descriptor stripped.
type Turn struct {
	ID         string
	Role       Role
	Raw        string
	Rendered   string
	Pending    bool
	Failed     bool
	Descriptor *protocol.Descriptor
	CreatedAt  time.Time
}

// Ticket identifies an outstanding question. It is returned by Begin and
// consumed by Call and Finish.
type Ticket struct {
	UserID    string
	PendingID string
	Question  string
	Prompt    string
}

// Outcome is the resolved assistant turn.
type Outcome struct {
	Turn  Turn
	Armed bool
	Err   error
}

// Armer receives simulatable descriptors. *viz.Controller implements it.
type Armer interface {
	Arm(d *protocol.Descriptor) error
}

type Option func(*Orchestrator)

func WithCodec(c protocol.Codec) Option {
	return func(o *Orchestrator) { o.codec = c }
}

func WithRenderer(r *mathrender.Renderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

func WithArmer(a Armer) Option {
	return func(o *Orchestrator) { o.armer = a }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logs.OrDiscard(l) }
}

// WithIDs replaces the uuid generator.
func WithIDs(next func() string) Option {
	return func(o *Orchestrator) { o.newID = next }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

type Orchestrator struct {
	mu       sync.Mutex
	turns    []Turn
	index    map[string]int
	codec    protocol.Codec
	renderer *mathrender.Renderer
	remote   remote.Inferencer
	armer    Armer
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

func New(inf remote.Inferencer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		index:    make(map[string]int),
		codec:    protocol.DefaultCodec,
		renderer: mathrender.New(nil, nil),
		remote:   inf,
		logger:   logs.Discard(),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Begin records the user turn and a pending assistant turn.
func (o *Orchestrator) Begin(input string) (Ticket, error) {
	if strings.TrimSpace(input) == "" {
		return Ticket{}, ErrEmptyInput
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	now := o.now()
	user := Turn{ID: o.newID(), Role: RoleUser, Raw: input, Rendered: input, CreatedAt: now}
	pending := Turn{ID: o.newID(), Role: RoleAssistant, Raw: PendingText, Rendered: PendingText, Pending: true, CreatedAt: now}
	o.appendLocked(user)
	o.appendLocked(pending)

	o.logger.Debug("turn started", "turn", pending.ID, "chars", len(input))
	return Ticket{
		UserID:    user.ID,
		PendingID: pending.ID,
		Question:  input,
		Prompt:    o.codec.EncodePrompt(input),
	}, nil
}

// Call performs the remote inference for t. It touches no orchestrator state
// and may run on any goroutine.
func (o *Orchestrator) Call(ctx context.Context, t Ticket) (string, error) {
	ctx = logs.WithTurn(ctx, t.PendingID)
	start := time.Now()
	raw, err := o.remote.Complete(ctx, t.Prompt)
	if err != nil {
		o.logger.ErrorContext(ctx, "inference failed", "error", err, "elapsed", time.Since(start))
		return "", err
	}
	o.logger.InfoContext(ctx, "inference done", "elapsed", time.Since(start), "bytes", len(raw))
	return raw, nil
}

// Finish resolves the pending turn of t with the reply, or with the apology
// when callErr is set. It reports false if that turn was already resolved.
func (o *Orchestrator) Finish(t Ticket, raw string, callErr error) (Outcome, bool) {
	ctx := logs.WithTurn(context.Background(), t.PendingID)

	resolved := Turn{ID: t.PendingID, Role: RoleAssistant}
	if callErr != nil {
		resolved.Raw, resolved.Rendered, resolved.Failed = ApologyText, ApologyText, true
	} else {
		resp, err := o.codec.Decode(raw)
		switch {
		case errors.Is(err, protocol.ErrNoSentinel):
			o.logger.DebugContext(ctx, "response has no descriptor")
		case err != nil:
			o.logger.WarnContext(ctx, "discarding descriptor", "error", err)
		}
		resolved.Raw = resp.Text
		resolved.Rendered = o.renderer.Render(resp.Text)
		resolved.Descriptor = o.acceptDescriptor(ctx, resp.Descriptor)
	}

	o.mu.Lock()
	i, ok := o.index[t.PendingID]
	if !ok || !o.turns[i].Pending {
		o.mu.Unlock()
		o.logger.WarnContext(ctx, "ignoring completion for resolved turn")
		return Outcome{}, false
	}
	resolved.CreatedAt = o.turns[i].CreatedAt
	o.turns[i] = resolved
	o.mu.Unlock()

	out := Outcome{Turn: resolved, Err: callErr}
	if resolved.Descriptor != nil && o.armer != nil {
		if err := o.armer.Arm(resolved.Descriptor); err != nil {
			o.logger.WarnContext(ctx, "could not arm simulation", "error", err, "scheme", resolved.Descriptor.Scheme)
		} else {
			out.Armed = true
			o.logger.InfoContext(ctx, "simulation armed", "scheme", resolved.Descriptor.Scheme)
		}
	}
	return out, true
}

// Ask runs Begin, Call and Finish in sequence. A failed call is reported in
// the outcome, not as an error.
func (o *Orchestrator) Ask(ctx context.Context, input string) (Outcome, error) {
	t, err := o.Begin(input)
	if err != nil {
		return Outcome{}, err
	}
	raw, callErr := o.Call(ctx, t)
	out, _ := o.Finish(t, raw, callErr)
	return out, nil
}

func (o *Orchestrator) Transcript() []Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Turn(nil), o.turns...)
}

func (o *Orchestrator) Turn(id string) (Turn, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	i, ok := o.index[id]
	if !ok {
		return Turn{}, false
	}
	return o.turns[i], true
}

// Pending counts unresolved assistant turns.
func (o *Orchestrator) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, t := range o.turns {
		if t.Pending {
			n++
		}
	}
	return n
}

// acceptDescriptor keeps only simulatable descriptors with a valid schema.
func (o *Orchestrator) acceptDescriptor(ctx context.Context, d *protocol.Descriptor) *protocol.Descriptor {
	if d == nil || !d.IsSimulatable {
		return nil
	}
	if err := d.Validate(); err != nil {
		o.logger.WarnContext(ctx, "descriptor failed validation", "error", err)
		return nil
	}
	d.Normalize()
	return d
}

func (o *Orchestrator) appendLocked(t Turn) {
	o.index[t.ID] = len(o.turns)
	o.turns = append(o.turns, t)
}
