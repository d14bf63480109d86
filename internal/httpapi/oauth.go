package httpapi

import (
	"net/http"

	"github.com/triv3/musicvault/internal/apperr"
	"github.com/triv3/musicvault/internal/domain"
)

// listConnectedAccounts lists the connected SourceAccounts rather than raw
// OAuthToken rows: every token field with credential material is
// json:"-" on OAuthToken, so the account is the only part safe to expose.
func (s *Server) listConnectedAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListSourceAccountsByProvider(r.Context(), domain.ProviderSpotify)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// spotifyAuthorize starts the PKCE handshake and redirects the caller's
// browser straight to Spotify's consent screen.
func (s *Server) spotifyAuthorize(w http.ResponseWriter, r *http.Request) {
	url, err := s.sync.AuthURL(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) spotifyCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeError(w, apperr.Validation("code and state query params are required"))
		return
	}
	account, err := s.sync.Callback(r.Context(), code, state)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) spotifyRefresh(w http.ResponseWriter, r *http.Request) {
	account, err := s.sync.EnsureAccount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.sync.Refresh(r.Context(), account.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) spotifyEnsureAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.sync.EnsureAccount(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}
