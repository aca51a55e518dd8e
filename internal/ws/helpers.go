package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newConnID mints a random identifier that follows one websocket connection
// through its lifecycle events.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
