package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/telephasma/telephasma/internal/model"
	"github.com/telephasma/telephasma/internal/platform"
)

// Engine defaults.
const (
	// DefaultParticipantLimit bounds how many members are enumerated when
	// seeding from a chat.
	DefaultParticipantLimit = 400

	// DefaultEventBuffer is the capacity of the event channel. A small
	// buffer absorbs bursts while keeping backpressure from a slow
	// consumer visible to the producer quickly.
	DefaultEventBuffer = 16
)

// Params describes one traversal run.
type Params struct {
	// Seed is the chat identifier whose members seed the queue. Ignored
	// when Targets is non-empty.
	Seed string

	// MaxDepth bounds the traversal: users enqueued at MaxDepth are still
	// probed but their gift edges are not expanded. 0 probes only seeds.
	MaxDepth int

	// Delay is the pause before each probe, the sole rate-governing
	// mechanism of the single-threaded traversal.
	Delay time.Duration

	// Targets, when non-empty, seeds the queue from an explicit list of
	// mixed numeric/username identifiers instead of chat members.
	Targets []string
}

// Engine drives the breadth-first traversal. One Engine can serve many
// runs; all per-run state (queue, visited set, stop token) is created
// fresh inside Run.
type Engine struct {
	client           platform.Client
	resolver         *Resolver
	probe            *Probe
	participantLimit int
	eventBuffer      int
	logger           *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithParticipantLimit overrides the chat-seeding enumeration bound.
func WithParticipantLimit(n int) Option {
	return func(e *Engine) {
		e.participantLimit = n
	}
}

// WithEventBuffer overrides the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(e *Engine) {
		e.eventBuffer = n
	}
}

// WithResolver replaces the default resolver.
func WithResolver(r *Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithProbe replaces the default probe.
func WithProbe(p *Probe) Option {
	return func(e *Engine) {
		e.probe = p
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine over the given client. Unless overridden, the
// resolver and probe are built with default policies sharing one invoker.
func New(client platform.Client, opts ...Option) *Engine {
	e := &Engine{
		client:           client,
		participantLimit: DefaultParticipantLimit,
		eventBuffer:      DefaultEventBuffer,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = NewResolver(client, WithResolverLogger(e.logger))
	}
	if e.probe == nil {
		inv := NewInvoker(WithInvokerLogger(e.logger))
		e.probe = NewProbe(client, inv, WithProbeLogger(e.logger))
	}
	return e
}

// queueItem is one pending traversal node. A child's depth is always its
// parent's depth plus one.
type queueItem struct {
	peer   platform.PeerRef
	depth  int
	origin string
}

// Run starts a traversal and returns its live event sequence. The channel
// is closed when the run ends: queue exhausted, stop requested, context
// cancelled, or a terminal error emitted. Consumers must forward events as
// they arrive rather than buffering to completion, or a stop's effect
// becomes invisible until the end.
//
// A nil stopper gets a private token, making the run cancellable only
// through ctx.
func (e *Engine) Run(ctx context.Context, st *Stopper, p Params) <-chan model.ScanEvent {
	if st == nil {
		st = NewStopper()
	}
	events := make(chan model.ScanEvent, e.eventBuffer)
	go func() {
		defer close(events)
		e.run(ctx, st, p, events)
	}()
	return events
}

// run executes seeding and the main loop. Seeding failures produce exactly
// one terminal ErrorEvent; events already emitted stay valid.
func (e *Engine) run(ctx context.Context, st *Stopper, p Params, events chan<- model.ScanEvent) {
	// Fresh per-run state: the visited set dedups across the whole run,
	// with ids inserted at enqueue time so duplicate gift edges can never
	// re-enqueue a user.
	visited := make(map[int64]bool)

	var queue []queueItem
	if len(p.Targets) > 0 {
		queue = e.seedTargets(ctx, st, p.Targets, visited)
	} else {
		var err error
		queue, err = e.seedChat(ctx, st, p.Seed, visited)
		if err != nil {
			e.logger.Error("scan engine failure during seeding", "seed", p.Seed, "error", err)
			e.emit(ctx, events, model.ErrorEvent{Message: "scan failed: " + err.Error()})
			return
		}
	}

	e.logger.Info("scan started",
		"seed", p.Seed,
		"queued", len(queue),
		"max_depth", p.MaxDepth,
		"delay", p.Delay,
	)

	for len(queue) > 0 {
		if st.Stopped() || ctx.Err() != nil {
			e.logger.Info("scan aborted during queue processing")
			return
		}

		item := queue[0]
		queue = queue[1:]

		if p.Delay > 0 && !sleepInterruptible(ctx, st, p.Delay) {
			return
		}
		if st.Stopped() {
			return
		}

		res, ok := e.probe.Scan(ctx, st, item.peer)
		if !ok {
			continue
		}

		// Only users whose bio yielded links are announced.
		if len(res.Links) > 0 {
			if !e.emit(ctx, events, model.UserFound{
				ID:             res.UserID,
				Username:       res.Username,
				FirstName:      res.FirstName,
				Depth:          item.depth,
				DiscoveredFrom: item.origin,
			}) {
				return
			}
			if !e.emit(ctx, events, detailEvent(res)) {
				return
			}
		}

		// Gift edges are needed for graph connectivity even when the user
		// itself has nothing to show. The detail event is repeated next to
		// the gift payload for consumers that key on gifts.
		if len(res.Gifts) > 0 {
			if !e.emit(ctx, events, model.UserGifts{
				UserID:        res.UserID,
				Gifts:         res.Gifts,
				ResolvedUsers: res.RelatedUsers,
			}) {
				return
			}
			if len(res.Links) > 0 {
				if !e.emit(ctx, events, detailEvent(res)) {
					return
				}
			}
		}

		if item.depth < p.MaxDepth {
			queue = e.expand(st, res, item.depth, visited, queue)
		}
	}
}

// seedTargets resolves an explicit target list into depth-0 queue items.
// Unresolvable targets are logged and skipped; they never fail the run.
func (e *Engine) seedTargets(ctx context.Context, st *Stopper, targets []string, visited map[int64]bool) []queueItem {
	queue := make([]queueItem, 0, len(targets))
	for _, target := range targets {
		if st.Stopped() {
			break
		}
		peer, err := e.resolver.Resolve(ctx, target)
		if err != nil {
			if !errors.Is(err, ErrEmptyIdentifier) {
				e.logger.Warn("could not resolve target", "target", target, "error", err)
			}
			continue
		}
		queue = append(queue, queueItem{peer: peer, depth: 0})
		if id := peer.ID(); id != 0 {
			visited[id] = true
		}
	}
	return queue
}

// seedChat enumerates a chat's members into depth-0 queue items, skipping
// bots and deleted accounts. A stop observed mid-enumeration aborts the
// remainder but keeps what was already queued.
func (e *Engine) seedChat(ctx context.Context, st *Stopper, seed string, visited map[int64]bool) ([]queueItem, error) {
	peer, err := e.resolver.Resolve(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("resolve seed %q: %w", seed, err)
	}
	entity, err := e.client.GetEntity(ctx, peer)
	if err != nil {
		return nil, fmt.Errorf("resolve chat entity: %w", err)
	}

	var queue []queueItem
	for user, err := range e.client.Participants(ctx, entity, e.participantLimit, true) {
		if err != nil {
			return nil, fmt.Errorf("enumerate participants: %w", err)
		}
		if st.Stopped() {
			e.logger.Info("scan aborted during participant fetch")
			break
		}
		if user.Bot || user.Deleted {
			continue
		}
		queue = append(queue, queueItem{peer: platform.EntityPeer(user.Entity()), depth: 0})
		visited[user.ID] = true
	}
	return queue, nil
}

// expand enqueues unvisited gift senders at depth+1. The stop token is
// re-checked before each gift so a stop lands between edges, not after the
// whole batch.
func (e *Engine) expand(st *Stopper, res *model.ScanResult, depth int, visited map[int64]bool, queue []queueItem) []queueItem {
	origin := originLabel(res)
	for _, g := range res.Gifts {
		if st.Stopped() {
			break
		}
		if !g.HasSender() || visited[g.SenderID] {
			continue
		}
		visited[g.SenderID] = true

		// A cached stub with a username beats a bare id: usernames are
		// independently resolvable, arbitrary ids often are not.
		peer := platform.NumericPeer(g.SenderID)
		if stub, ok := res.RelatedUsers[g.SenderID]; ok && stub.Username != "" {
			peer = platform.UsernamePeer(stub.Username)
		}
		queue = append(queue, queueItem{peer: peer, depth: depth + 1, origin: origin})
	}
	return queue
}

// emit delivers an event, abandoning the run when the consumer's context
// is gone.
func (e *Engine) emit(ctx context.Context, events chan<- model.ScanEvent, ev model.ScanEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// detailEvent builds the UserDetail event for a result.
func detailEvent(res *model.ScanResult) model.UserDetail {
	return model.UserDetail{
		ID:           res.UserID,
		Bio:          res.Bio,
		ChannelLinks: res.Links,
		Username:     res.Username,
	}
}

// originLabel renders the human-readable trace of where an edge came from:
// the handle when one exists, else the display name, else the numeric id.
func originLabel(res *model.ScanResult) string {
	switch {
	case res.Username != "":
		return "@" + res.Username
	case res.FirstName != "":
		return res.FirstName
	default:
		return strconv.FormatInt(res.UserID, 10)
	}
}
