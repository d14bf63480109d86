package sync

import (
	"context"
	"strings"
	"testing"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
	"github.com/triv3/musicvault/internal/normalize"
	"github.com/triv3/musicvault/internal/secure"
	"github.com/triv3/musicvault/internal/store"
)

func newTestIngestor(t *testing.T) (*Ingestor, *store.DB) {
	t.Helper()
	db, err := store.Open("file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	box, err := secure.NewBox("")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	ing := New(db, box, Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://example.test/callback",
	}, nil)
	return ing, db
}

func TestNewPKCEPairIsWellFormed(t *testing.T) {
	verifier, challenge, err := newPKCEPair()
	if err != nil {
		t.Fatalf("newPKCEPair: %v", err)
	}
	if len(verifier) < 32 {
		t.Errorf("verifier too short: %q", verifier)
	}
	if challenge == verifier {
		t.Errorf("challenge should be a hash of verifier, not the verifier itself")
	}
	if strings.ContainsAny(verifier, "+/=") || strings.ContainsAny(challenge, "+/=") {
		t.Errorf("expected base64 RawURLEncoding, got padding/unsafe chars: verifier=%q challenge=%q", verifier, challenge)
	}

	verifier2, challenge2, err := newPKCEPair()
	if err != nil {
		t.Fatalf("newPKCEPair: %v", err)
	}
	if verifier == verifier2 || challenge == challenge2 {
		t.Errorf("expected distinct pairs across calls")
	}
}

func TestNewStateIsUnique(t *testing.T) {
	a, err := newState()
	if err != nil {
		t.Fatalf("newState: %v", err)
	}
	b, err := newState()
	if err != nil {
		t.Fatalf("newState: %v", err)
	}
	if a == b {
		t.Errorf("expected two distinct state tokens, got the same value twice")
	}
}

func TestAuthURLPersistsStateAndReturnsPKCEParams(t *testing.T) {
	ing, db := newTestIngestor(t)
	ctx := context.Background()

	url, err := ing.AuthURL(ctx)
	if err != nil {
		t.Fatalf("AuthURL: %v", err)
	}
	if !strings.Contains(url, "code_challenge_method=S256") {
		t.Errorf("expected url to request S256 PKCE, got %q", url)
	}
	if !strings.Contains(url, "accounts.spotify.com/authorize") {
		t.Errorf("expected spotify authorize endpoint, got %q", url)
	}

	idx := strings.Index(url, "state=")
	if idx == -1 {
		t.Fatalf("expected a state param in %q", url)
	}

	state := url[idx+len("state="):]
	if amp := strings.Index(state, "&"); amp >= 0 {
		state = state[:amp]
	}
	saved, err := db.ConsumeOAuthState(ctx, state)
	if err != nil {
		t.Fatalf("consume persisted state: %v", err)
	}
	if saved == nil {
		t.Fatalf("expected AuthURL to persist state %q", state)
	}
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	ing, _ := newTestIngestor(t)
	ctx := context.Background()

	_, err := ing.Callback(ctx, "some-code", "state-that-was-never-issued")
	if err == nil {
		t.Fatalf("expected an error for an unknown oauth state")
	}
}

func TestEnsureAccountIsIdempotent(t *testing.T) {
	ing, _ := newTestIngestor(t)
	ctx := context.Background()

	first, err := ing.EnsureAccount(ctx)
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}
	if first.Provider != domain.ProviderSpotify {
		t.Errorf("Provider = %q, want %q", first.Provider, domain.ProviderSpotify)
	}

	second, err := ing.EnsureAccount(ctx)
	if err != nil {
		t.Fatalf("EnsureAccount (second call): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected EnsureAccount to return the same account on repeat calls, got ids %d and %d", first.ID, second.ID)
	}
}

func TestTrackDedupKeyMatchesNormalizePackage(t *testing.T) {
	artists, title := trackDedupKey("Daft Punk", "One More Time")
	if artists == "" || title == "" {
		t.Errorf("expected nonempty normalized fields, got (%q, %q)", artists, title)
	}
	want := normalize.Normalize("Daft Punk", "One More Time")
	if artists != want.NormalizedArtists || title != want.NormalizedTitle {
		t.Errorf("trackDedupKey = (%q, %q), want (%q, %q)", artists, title, want.NormalizedArtists, want.NormalizedTitle)
	}
}

func TestRefreshWithoutStoredTokenReturnsNotFound(t *testing.T) {
	ing, _ := newTestIngestor(t)
	ctx := context.Background()

	account, err := ing.EnsureAccount(ctx)
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	err = ing.Refresh(ctx, account.ID)
	if err == nil {
		t.Fatalf("expected an error refreshing an account with no stored token")
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("KindOf(err) = %v, want %v", apperr.KindOf(err), apperr.KindNotFound)
	}
}
