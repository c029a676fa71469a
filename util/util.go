package util

import (
	"encoding/base64"

	"github.com/satori/go.uuid"
)

// MakeRunID returns a random (v4) UUID in its canonical text form.
func MakeRunID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// Short returns the 22 character url-safe base64 form of a run id, for log prefixes.
// Ids that are not UUIDs are returned unchanged.
func Short(runID string) string {
	u, err := uuid.FromString(runID)
	if err != nil {
		return runID
	}
	return base64.RawURLEncoding.EncodeToString(u.Bytes())
}
