package middleware

import (
	"context"
	"net/http"

	scs "github.com/alexedwards/scs/v2"
)

type contextKey string

const FlashKey contextKey = "flash"

const (
	flashLevelKey   = "flash_level"
	flashMessageKey = "flash_message"
)

// Toast is a one-shot message shown after a redirect.
type Toast struct {
	Level   string // "success" or "error"
	Message string
}

// PutFlash stores a toast in the session for the next request.
func PutFlash(ctx context.Context, sess *scs.SessionManager, level, message string) {
	sess.Put(ctx, flashLevelKey, level)
	sess.Put(ctx, flashMessageKey, message)
}

// Flash pops any pending toast out of the session and into the request
// context, so it is shown exactly once. It must run inside sess.LoadAndSave.
func Flash(sess *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				if msg := sess.PopString(r.Context(), flashMessageKey); msg != "" {
					t := Toast{Level: sess.PopString(r.Context(), flashLevelKey), Message: msg}
					r = r.WithContext(context.WithValue(r.Context(), FlashKey, t))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FlashFrom returns the toast Flash attached to ctx, if any.
func FlashFrom(ctx context.Context) (Toast, bool) {
	t, ok := ctx.Value(FlashKey).(Toast)
	return t, ok
}
