package server

import (
	"context"
	"net/http"

	"tailscale.com/client/local"
)

type contextKey int

const (
	userIDKey contextKey = iota
	userInfoKey
)

// UserInfo is the identity surfaced to the frontend via /api/v1/me.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// userIDFromContext returns the user ID set by identity middleware,
// defaulting to 1 so local development without Tailscale keeps working.
func userIDFromContext(r *http.Request) int {
	if id, ok := r.Context().Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// userInfoFromContext returns the identity set by middleware, with a dev
// fallback matching DevIdentity.
func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return UserInfo{Login: "local", DisplayName: "Local Dev User"}
}

// mustUserID extracts the user ID or writes a 401. The bool result is false
// when the response has already been written.
func mustUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id := userIDFromContext(r)
	if id <= 0 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
		return 0, false
	}
	return id, true
}

func withIdentity(ctx context.Context, uid int, info UserInfo) context.Context {
	ctx = context.WithValue(ctx, userIDKey, uid)
	return context.WithValue(ctx, userInfoKey, info)
}

// DevIdentity sets a fixed local identity on every request, enabling
// development without Tailscale.
func DevIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withIdentity(r.Context(), 1, UserInfo{Login: "local", DisplayName: "Local Dev User"})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TailscaleIdentity resolves the caller through the tsnet local client and
// maps the Tailscale login to a user row. Requests that cannot be resolved
// are rejected; tsnet only delivers tailnet traffic, so this is a backstop.
func (s *Server) TailscaleIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who, err := s.ts.WhoIs(r.Context(), r.RemoteAddr)
		if err != nil || who.UserProfile == nil {
			s.log.Warn("tailscale whois failed", "remote", r.RemoteAddr, "error", err)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
			return
		}

		login := who.UserProfile.LoginName
		display := who.UserProfile.DisplayName
		uid, err := s.db.GetOrCreateUser(r.Context(), login, display)
		if err != nil {
			s.log.Error("resolving user", "login", login, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "user lookup failed"})
			return
		}

		ctx := withIdentity(r.Context(), uid, UserInfo{Login: login, DisplayName: display})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetTailscale installs the tsnet local client used for WhoIs lookups.
func (s *Server) SetTailscale(lc *local.Client) {
	s.ts = lc
}
