package scan

import (
	"context"
	"log/slog"
	"slices"

	"github.com/telephasma/telephasma/internal/extract"
	"github.com/telephasma/telephasma/internal/model"
	"github.com/telephasma/telephasma/internal/platform"
)

// DefaultGiftLimit bounds how many gifts are fetched per probed user.
const DefaultGiftLimit = 100

// Probe fetches and assembles one user's findings: profile, bio links, and
// gift ledger. A failed probe means the node is unreachable and is simply
// skipped by the traversal; it never aborts the overall run.
type Probe struct {
	client    platform.Client
	invoker   *Invoker
	extractor *extract.Extractor
	giftLimit int
	logger    *slog.Logger
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithGiftLimit overrides the per-user gift fetch limit.
func WithGiftLimit(n int) ProbeOption {
	return func(p *Probe) {
		p.giftLimit = n
	}
}

// WithProbeLogger sets the probe's logger.
func WithProbeLogger(logger *slog.Logger) ProbeOption {
	return func(p *Probe) {
		p.logger = logger
	}
}

// NewProbe creates a Probe that issues calls through the given invoker.
func NewProbe(client platform.Client, invoker *Invoker, opts ...ProbeOption) *Probe {
	p := &Probe{
		client:    client,
		invoker:   invoker,
		extractor: extract.New(),
		giftLimit: DefaultGiftLimit,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Scan probes a single user. It returns the composed result and true, or
// nil and false when the profile is unreachable or the run was stopped.
// The gift ledger is fetched regardless of link presence; a ledger fetch
// failure degrades to an empty ledger rather than failing the probe.
func (p *Probe) Scan(ctx context.Context, st *Stopper, peer platform.PeerRef) (*model.ScanResult, bool) {
	if st.Stopped() {
		return nil, false
	}

	var full *platform.FullProfile
	ok := p.invoker.Do(ctx, st, "get_full_profile", func(ctx context.Context) error {
		f, err := p.client.GetFullProfile(ctx, peer)
		if err != nil {
			return err
		}
		full = f
		return nil
	})
	if !ok || st.Stopped() {
		return nil, false
	}

	bio := model.CleanText(full.Bio)
	links := p.extractor.Extract(bio)

	// Best effort: a declared personal channel is a contact link even when
	// the bio never mentions it. Resolution failures are ignored.
	if full.PersonalChannelID != 0 {
		ent, err := p.client.GetEntity(ctx, platform.NumericPeer(full.PersonalChannelID))
		if err != nil {
			p.logger.Debug("personal channel resolution failed",
				"user_id", full.User.ID,
				"channel_id", full.PersonalChannelID,
				"error", err,
			)
		} else if ent.Username != "" && !slices.Contains(links, ent.Username) {
			links = append(links, ent.Username)
		}
	}

	// Self-referential edges carry no information.
	if full.User.Username != "" {
		links = slices.DeleteFunc(links, func(l string) bool {
			return l == full.User.Username
		})
	}

	gifts, related := p.fetchGifts(ctx, st, peer)

	return &model.ScanResult{
		UserID:       full.User.ID,
		Username:     full.User.Username,
		FirstName:    model.CleanText(full.User.FirstName),
		Bio:          bio,
		Links:        links,
		Gifts:        gifts,
		RelatedUsers: related,
	}, true
}

// fetchGifts retrieves the user's gift ledger, returning empty results on
// any failure.
func (p *Probe) fetchGifts(ctx context.Context, st *Stopper, peer platform.PeerRef) ([]model.Gift, map[int64]model.UserStub) {
	var ledger *platform.GiftLedger
	ok := p.invoker.Do(ctx, st, "get_gift_ledger", func(ctx context.Context) error {
		l, err := p.client.GetGiftLedger(ctx, peer, p.giftLimit)
		if err != nil {
			return err
		}
		ledger = l
		return nil
	})
	if !ok || ledger == nil {
		return nil, nil
	}
	return ledger.Gifts, ledger.Users
}
