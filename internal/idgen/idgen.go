// internal/idgen/idgen.go
package idgen

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"
)

const (
	joinCodeAlphabet = "0123456789"
	joinCodeSize     = 6
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// MessageID returns a ULID. Ids minted within the same millisecond still sort
// in creation order, which keeps the transcript ordering stable.
func MessageID(now time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// JoinCode returns a six-digit room code.
func JoinCode() (string, error) {
	code, err := gonanoid.Generate(joinCodeAlphabet, joinCodeSize)
	if err != nil {
		return "", fmt.Errorf("failed to generate join code: %w", err)
	}
	// a leading zero reads badly when shared aloud
	if code[0] == '0' {
		code = "1" + code[1:]
	}
	return code, nil
}
