package platform

import (
	"errors"
	"testing"
	"time"
)

func TestPeerRefVariants(t *testing.T) {
	t.Parallel()

	t.Run("numeric", func(t *testing.T) {
		t.Parallel()
		p := NumericPeer(-1001234)
		if p.Kind() != PeerID {
			t.Errorf("expected PeerID, got %v", p.Kind())
		}
		if p.ID() != -1001234 {
			t.Errorf("expected id -1001234, got %d", p.ID())
		}
		if p.String() != "-1001234" {
			t.Errorf("expected string -1001234, got %q", p.String())
		}
	})

	t.Run("username", func(t *testing.T) {
		t.Parallel()
		p := UsernamePeer("alice")
		if p.Kind() != PeerUsername {
			t.Errorf("expected PeerUsername, got %v", p.Kind())
		}
		if p.Username() != "alice" {
			t.Errorf("expected username alice, got %q", p.Username())
		}
		if p.String() != "@alice" {
			t.Errorf("expected string @alice, got %q", p.String())
		}
	})

	t.Run("entity", func(t *testing.T) {
		t.Parallel()
		e := &Entity{ID: 99, Username: "chan", Kind: EntityChannel}
		p := EntityPeer(e)
		if p.Kind() != PeerEntity {
			t.Errorf("expected PeerEntity, got %v", p.Kind())
		}
		if p.ID() != 99 {
			t.Errorf("expected id 99, got %d", p.ID())
		}
		if p.Entity() != e {
			t.Error("expected same entity handle")
		}
	})

	t.Run("nil entity yields zero ref", func(t *testing.T) {
		t.Parallel()
		p := EntityPeer(nil)
		if !p.IsZero() {
			t.Error("expected zero PeerRef for nil entity")
		}
	})

	t.Run("zero value", func(t *testing.T) {
		t.Parallel()
		var p PeerRef
		if !p.IsZero() {
			t.Error("expected zero value to be zero")
		}
		if p.String() != "<none>" {
			t.Errorf("expected <none>, got %q", p.String())
		}
	})
}

func TestFailureClasses(t *testing.T) {
	t.Parallel()

	t.Run("rate limit carries wait", func(t *testing.T) {
		t.Parallel()
		var err error = &RateLimitError{RetryAfter: 3 * time.Second}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			t.Fatal("errors.As failed for RateLimitError")
		}
		if rl.RetryAfter != 3*time.Second {
			t.Errorf("expected 3s, got %s", rl.RetryAfter)
		}
	})

	t.Run("session busy unwraps cause", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("database is locked")
		var err error = &SessionBusyError{Cause: cause}
		if !errors.Is(err, cause) {
			t.Error("expected Unwrap to expose cause")
		}
	})

	t.Run("soft classification", func(t *testing.T) {
		t.Parallel()
		if !IsSoft(ErrPrivacyRestricted) {
			t.Error("privacy restriction should be soft")
		}
		if !IsSoft(ErrFilterNotSupported) {
			t.Error("unsupported filter should be soft")
		}
		if IsSoft(&RateLimitError{}) {
			t.Error("rate limit must not be soft")
		}
		if IsSoft(errors.New("boom")) {
			t.Error("generic error must not be soft")
		}
	})
}
