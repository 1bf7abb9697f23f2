package scan

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/telephasma/telephasma/internal/platform"
)

// DefaultCacheScanLimit is how many recently-cached dialogs are scanned
// when upgrading a bare numeric id to a resolved entity. Numeric ids are
// often not independently resolvable; an entity found in the dialog cache
// always is.
const DefaultCacheScanLimit = 200

// ErrEmptyIdentifier is returned for empty or whitespace-only input. The
// caller treats it as "skip this seed" rather than a failure.
var ErrEmptyIdentifier = errors.New("empty identifier")

// linkPrefixes are stripped from string identifiers before interpretation,
// longest first so schemed links lose their whole prefix in one pass.
var linkPrefixes = []string{
	"https://t.me/",
	"http://t.me/",
	"t.me/",
	"@",
}

// Resolver normalizes heterogeneous identifiers (numeric ids, usernames,
// t.me links) into canonical platform.PeerRef values. It is the only place
// identifier interpretation happens; everything downstream works with the
// tagged PeerRef union.
type Resolver struct {
	client    platform.Client
	cacheScan int
	logger    *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCacheScanLimit overrides how many cached dialogs are scanned for
// numeric-id upgrades.
func WithCacheScanLimit(n int) ResolverOption {
	return func(r *Resolver) {
		r.cacheScan = n
	}
}

// WithResolverLogger sets the resolver's logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver backed by the given client.
func NewResolver(client platform.Client, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:    client,
		cacheScan: DefaultCacheScanLimit,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve normalizes an identifier into a PeerRef. Rules, in order:
//
//   - empty or whitespace-only input: ErrEmptyIdentifier
//   - known link prefixes (t.me variants, "@") are stripped
//   - digits with an optional leading minus: parsed as a numeric id, then
//     upgraded to a resolved entity when the id appears among the most
//     recently cached dialogs; cache-scan failures are logged and ignored,
//     falling back to the bare numeric id
//   - anything else: a username reference
func (r *Resolver) Resolve(ctx context.Context, identifier string) (platform.PeerRef, error) {
	s := strings.TrimSpace(identifier)
	if s == "" {
		return platform.PeerRef{}, ErrEmptyIdentifier
	}

	for _, prefix := range linkPrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	if s == "" {
		return platform.PeerRef{}, ErrEmptyIdentifier
	}

	if isNumericID(s) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			if ent := r.lookupCachedEntity(ctx, id); ent != nil {
				return platform.EntityPeer(ent), nil
			}
			return platform.NumericPeer(id), nil
		}
		// Out-of-range digit strings fall through to the username path;
		// the platform rejects them with a proper error on first use.
	}

	return platform.UsernamePeer(s), nil
}

// lookupCachedEntity scans the recent dialog cache for an entity matching
// the numeric id, either by dialog id or by the entity's positive id.
// Returns nil when absent or when the scan fails.
func (r *Resolver) lookupCachedEntity(ctx context.Context, id int64) *platform.Entity {
	dialogs, err := r.client.RecentDialogs(ctx, r.cacheScan)
	if err != nil {
		r.logger.Warn("dialog cache scan failed, using bare id", "id", id, "error", err)
		return nil
	}

	abs := id
	if abs < 0 {
		abs = -abs
	}
	for _, d := range dialogs {
		if d.ID == id || (d.Entity != nil && d.Entity.ID == abs) {
			r.logger.Info("numeric id upgraded from dialog cache", "id", id)
			return d.Entity
		}
	}
	return nil
}

// isNumericID reports whether s consists only of digits with an optional
// leading minus sign.
func isNumericID(s string) bool {
	body := strings.TrimPrefix(s, "-")
	if body == "" {
		return false
	}
	for _, c := range body {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
