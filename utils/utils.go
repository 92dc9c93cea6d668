package utils

import (
	"net/http"

	"mkulima/globals"

	"github.com/google/uuid"
)

func GetUUID() string {
	return uuid.New().String()
}

func GetUserIDFromRequest(r *http.Request) string {
	ctx := r.Context()
	requestingUserID, ok := ctx.Value(globals.UserIDKey).(string)
	if !ok || requestingUserID == "" {
		return ""
	}
	return requestingUserID
}
