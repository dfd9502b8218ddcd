package middleware

import (
	"fmt"
	"net/http"

	"github.com/fzheng/homepoints/internal/auth"
	"github.com/fzheng/homepoints/internal/store"
)

const sessionCookieName = "homepoints_session"

// RequireAuth validates the session cookie and populates AuthContext. The
// API is JSON-only, so failures answer 401 rather than redirecting. A
// session without an active family still passes (for family creation and
// joining); the role is resolved only when a family is active.
func RequireAuth(sessions *store.SessionStore, families *store.FamilyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:    sess.UserID,
				FamilyID:  sess.FamilyID,
				SessionID: sess.ID,
			}
			if sess.FamilyID != 0 {
				member, err := families.GetMember(sess.FamilyID, sess.UserID)
				if err != nil || member == nil {
					unauthorized(w)
					return
				}
				ac.Role = member.Role
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireFamily rejects requests whose session has no active family.
func RequireFamily(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.FamilyID(r.Context()) == 0 {
			jsonError(w, http.StatusBadRequest, "no active family")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin checks that the authenticated user has at least admin
// authority in the active family.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			jsonError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	jsonError(w, http.StatusUnauthorized, "unauthorized")
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`+"\n", msg)
}
