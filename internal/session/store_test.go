package session

import (
	"bytes"
	"context"
	"testing"
)

func setupTestStore(t *testing.T, apiHash string) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), apiHash)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestAuthKeyRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := setupTestStore(t, "0123456789abcdef")

	key := []byte("auth-key-material-for-one-account")
	if err := s.SaveAuthKey(ctx, "+15550100", key); err != nil {
		t.Fatalf("failed to save auth key: %v", err)
	}

	got, err := s.AuthKey(ctx, "+15550100")
	if err != nil {
		t.Fatalf("failed to load auth key: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Errorf("round trip mismatch: got %q", got)
	}
}

func TestAuthKeyAbsent(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t, "0123456789abcdef")

	got, err := s.AuthKey(context.Background(), "+15550199")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for an unknown phone, got %q", got)
	}
}

func TestAuthKeyOverwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := setupTestStore(t, "0123456789abcdef")

	if err := s.SaveAuthKey(ctx, "+15550100", []byte("old")); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := s.SaveAuthKey(ctx, "+15550100", []byte("new")); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}

	got, err := s.AuthKey(ctx, "+15550100")
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("expected the newer key, got %q", got)
	}
}

func TestAuthKeyWrongHashFailsToUnseal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := Open(dir, "correct-hash")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := s1.SaveAuthKey(ctx, "+15550100", []byte("secret")); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	_ = s1.Close()

	s2, err := Open(dir, "wrong-hash")
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s2.Close()

	if _, err := s2.AuthKey(ctx, "+15550100"); err == nil {
		t.Error("expected unsealing with a different API hash to fail")
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := setupTestStore(t, "0123456789abcdef")

	if err := s.SaveAuthKey(ctx, "+15550100", []byte("secret")); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	if err := s.DeleteSession(ctx, "+15550100"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	got, err := s.AuthKey(ctx, "+15550100")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected the session to be gone")
	}
}

func TestPeerCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := setupTestStore(t, "0123456789abcdef")

	peers := []*Peer{
		{ID: -1001, Username: "darkpool", Title: "Dark Pool", Kind: "megagroup"},
		{ID: -1002, Title: "Announcements", Kind: "channel"},
		{ID: 42, Username: "alice", Title: "Alice", Kind: "user"},
	}
	for _, p := range peers {
		if err := s.CachePeer(ctx, p); err != nil {
			t.Fatalf("failed to cache peer %d: %v", p.ID, err)
		}
	}

	// Refreshing an entry must not duplicate it.
	if err := s.CachePeer(ctx, &Peer{ID: 42, Username: "alice", Title: "Alice A.", Kind: "user"}); err != nil {
		t.Fatalf("failed to refresh peer: %v", err)
	}

	got, err := s.RecentPeers(ctx, 10)
	if err != nil {
		t.Fatalf("failed to query peers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 peers, got %d", len(got))
	}

	byID := make(map[int64]Peer, len(got))
	for _, p := range got {
		byID[p.ID] = p
	}
	if byID[42].Title != "Alice A." {
		t.Errorf("expected refreshed title, got %q", byID[42].Title)
	}
	if byID[-1002].Username != "" {
		t.Errorf("expected empty username, got %q", byID[-1002].Username)
	}

	limited, err := s.RecentPeers(ctx, 2)
	if err != nil {
		t.Fatalf("failed to query peers: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit to apply, got %d peers", len(limited))
	}
}
