package middleware

import (
	"net/http"

	"github.com/Bogdusik/programming-helper-ai/internal/gate"
	"github.com/Bogdusik/programming-helper-ai/internal/identity"
)

// exemptPaths must stay reachable for blocked users: the blocked notice
// itself and the contact page for appealing the block. Navigating to them
// also busts the cached status so an unblock is noticed promptly.
var exemptPaths = map[string]bool{
	"/blocked": true,
	"/contact": true,
}

// RequireNotBlocked rejects requests from users whose blocked status is
// positively known. An unknown (still loading) status passes through: the
// gating sequencer fails closed on its own, and refusing all traffic on a
// resolver outage would take the whole product down.
func RequireNotBlocked(resolver *gate.BlockStatusResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := identity.UserIDFromContext(r.Context())

			if exemptPaths[r.URL.Path] {
				resolver.Invalidate(userID)
				next.ServeHTTP(w, r)
				return
			}

			if blocked, ok := resolver.Resolve(r.Context(), userID).Value(); ok && blocked {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"account_blocked"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
