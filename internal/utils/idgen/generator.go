package idgen

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyOnce sync.Once
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// NewDishID returns a dish_* ULID string.
func NewDishID() string {
	return newPrefixed("dish_")
}

// NewScanID returns a scan_* ULID string.
func NewScanID() string {
	return newPrefixed("scan_")
}

func newPrefixed(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	return prefix + strings.ToLower(id.String())
}

// IsDishID reports whether the string is a dish_* ULID.
func IsDishID(value string) bool {
	if !strings.HasPrefix(value, "dish_") {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(strings.TrimPrefix(value, "dish_")))
	return err == nil
}
