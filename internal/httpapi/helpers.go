package httpapi

import (
	"net/http"
	"time"

	"github.com/harrowgate/sitrep/internal/auth"
)

func callerUserID(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.UserID
	}
	return ""
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func timeHours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}
