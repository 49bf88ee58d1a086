package handler

import (
	"errors"
	"net/http"

	"github.com/tripdesk/backend/internal/domain"
	"github.com/tripdesk/backend/internal/splitwise"
)

// LinkResponse carries the provider consent URL the caller should visit.
type LinkResponse struct {
	URL string `json:"url"`
}

// AccountStatusResponse is the body of GET /splitwise/account.
type AccountStatusResponse struct {
	Linked  bool            `json:"linked"`
	Account *splitwise.User `json:"account,omitempty"`
}

// InitiateProviderLink handles GET /splitwise/initiate. It parks an oauth
// state for the acting user and returns the provider consent URL.
func (s *Server) InitiateProviderLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	url, err := s.accounts.InitiateLink(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respond(w, http.StatusNotFound, notFoundBody("user not found"))
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, LinkResponse{URL: url})
}

// CompleteProviderLink handles GET /splitwise/callback. The provider redirects
// here with ?state= and ?code=; the state, not a bearer token, authenticates
// the request.
func (s *Server) CompleteProviderLink(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state, code := query.Get("state"), query.Get("code")
	if state == "" || code == "" {
		s.respond(w, http.StatusUnprocessableEntity, requestBody("state and code are required"))
		return
	}

	user, err := s.accounts.CompleteLink(r.Context(), state, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthorized) {
			s.respond(w, http.StatusUnauthorized, unauthorizedBody("unknown or expired oauth state"))
			return
		}
		s.respondProviderOr500(w, r, err)
		return
	}

	s.respond(w, http.StatusOK, user)
}

// ProviderAccountStatus handles GET /splitwise/account.
func (s *Server) ProviderAccountStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.actingUser(w, r)
	if !ok {
		return
	}

	linked, account, err := s.accounts.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respond(w, http.StatusNotFound, notFoundBody("user not found"))
			return
		}
		s.respondProviderOr500(w, r, err)
		return
	}

	resp := AccountStatusResponse{Linked: linked}
	if linked {
		resp.Account = &account
	}
	s.respond(w, http.StatusOK, resp)
}
