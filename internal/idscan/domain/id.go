package domain

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"time"
)

var idPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// NewID returns a 24 character hex id: 4 bytes of big-endian unix seconds
// followed by 8 random bytes, so ids sort roughly by creation time.
func NewID(now time.Time) string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(now.Unix()))
	if _, err := rand.Read(b[4:]); err != nil {
		panic("idscan: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// IsValidID reports whether id is 24 hex characters
func IsValidID(id string) bool {
	return idPattern.MatchString(id)
}

// IDTime returns the creation time encoded in a valid id
func IDTime(id string) (time.Time, bool) {
	if !IsValidID(id) {
		return time.Time{}, false
	}
	b, err := hex.DecodeString(id[:8])
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(int64(binary.BigEndian.Uint32(b)), 0).UTC(), true
}
