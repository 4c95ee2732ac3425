// Package idgen generates the externally visible test id and internal
// per-request correlation ids used only for tracing.
package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// TestID produces the externally mandated id format test_<ms>_<7 base36>.
func TestID(now time.Time) string {
	return fmt.Sprintf("test_%d_%s", now.UnixMilli(), randomBase36(7))
}

func randomBase36(n int) string {
	out := make([]byte, n)
	alphabetLen := big.NewInt(int64(len(base36Alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand failure is not recoverable in-process; fall back
			// to a fixed character rather than panicking mid-request.
			out[i] = base36Alphabet[0]
			continue
		}
		out[i] = base36Alphabet[idx.Int64()]
	}
	return string(out)
}

// CorrelationID returns an internal id for tagging a single request
// attempt's trace span. It is never part of the externally visible test
// id or RequestResult.
func CorrelationID() string {
	return ulid.Make().String()
}
