package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewObjectID returns a 24-character lowercase hex id whose first 8
// characters encode the creation time as big-endian unix seconds. The
// remaining 16 characters are random.
func NewObjectID() string {
	buf := make([]byte, 12)
	now := uint32(time.Now().Unix())
	buf[0] = byte(now >> 24)
	buf[1] = byte(now >> 16)
	buf[2] = byte(now >> 8)
	buf[3] = byte(now)
	rand.Read(buf[4:])
	return hex.EncodeToString(buf)
}

// TimestampFromID recovers the creation time embedded in an id
// produced by NewObjectID. Ids that are too short or whose leading 8
// characters are not hex map to the unix epoch, so a malformed id
// sorts deterministically oldest rather than taking the current time.
func TimestampFromID(id string) time.Time {
	if len(id) < 8 {
		return time.Unix(0, 0).UTC()
	}
	secs, err := strconv.ParseUint(id[:8], 16, 32)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(int64(secs), 0).UTC()
}
