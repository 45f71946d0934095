package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// AdminCookie carries the admin session token.
const AdminCookie = "ripeness_admin"

// AdminToken derives the cookie value for password.
func AdminToken(password string) string {
	sum := sha256.Sum256([]byte("ripeness-admin:" + password))
	return hex.EncodeToString(sum[:])
}

// AdminOnly guards log and ledger maintenance endpoints. An empty password
// leaves them open.
func AdminOnly(password string, next http.Handler) http.Handler {
	if password == "" {
		return next
	}
	token := AdminToken(password)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AdminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(token)) != 1 {
			if r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Accept") == "application/json" ||
				r.Method != http.MethodGet {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
