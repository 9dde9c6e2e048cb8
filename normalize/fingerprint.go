package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// NormalizeCode is the canonical form of an item code.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

// Fingerprint identifies a borrow event independently of the feed it came
// from: the item code plus the checkout minute.
func Fingerprint(code string, checkout time.Time) string {
	minute := checkout.Truncate(time.Minute).Unix()
	h := xxhash.Sum64String(NormalizeCode(code) + "|" + strconv.FormatInt(minute, 10))
	return fmt.Sprintf("%016x", h)
}
