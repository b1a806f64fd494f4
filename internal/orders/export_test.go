package orders

import "encoding/base64"

// EncodeRaw builds a cursor token from an arbitrary payload.
func EncodeRaw(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}
