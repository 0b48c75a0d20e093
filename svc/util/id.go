package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

const idLength = 8

// Clock supplies the instant mixed into paste identifiers. Injecting it
// keeps identifier derivation deterministic under test.
type Clock func() time.Time

type IDGenerator struct {
	clock Clock
}

func NewIDGenerator(clock Clock) *IDGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &IDGenerator{clock: clock}
}

// Next derives an identifier from the content and the current instant and
// returns that instant so callers can persist the exact value that was
// hashed. The same (content, instant) pair always yields the same id; the
// id space is 32 bits, so collisions are rare but possible and callers
// must handle them.
func (g *IDGenerator) Next(content string) (string, time.Time) {
	now := g.clock()
	instant := strconv.FormatInt(now.UnixNano(), 10)
	sum := sha256.Sum256([]byte(content + instant))
	return hex.EncodeToString(sum[:])[:idLength], now
}
