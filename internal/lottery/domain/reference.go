package domain

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// referencePrefix marks references issued by this service so gateway
// dashboards can tell them apart from other traffic.
const referencePrefix = "ankwata_"

// NewReference generates a payment reference using UUIDv4 bytes encoded as
// base32. The random portion is 26 characters long, lowercase, with no
// padding.
func NewReference() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	// RFC 4122 variant and version bits for a v4 UUID.
	raw[6] = (raw[6] & 0x0f) | 0x40
	raw[8] = (raw[8] & 0x3f) | 0x80

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return referencePrefix + strings.ToLower(encoded), nil
}
