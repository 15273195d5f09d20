package attribute

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrBadEstimation reports an estimation string outside the
// weeks-days-hours form.
var ErrBadEstimation = errors.New("invalid estimation value")

// Estimation strings express working time as weeks, days and hours, in that
// order, each part optional: "2w1d4h", "3d", "12h". A day is 8 hours, a week
// is 5 days.
var estimationRe = regexp.MustCompile(`^(?:(\d+)w)?(?:(\d+)d)?(?:(\d+)h)?$`)

// NormalizeEstimation canonicalizes an estimation string: hours overflow
// into days at 8, days overflow into weeks at 5, and zero components are
// dropped, so "90h" becomes "2w1d2h" and "0h" becomes "". Strings that do
// not follow the weeks-days-hours form are rejected.
func NormalizeEstimation(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	m := estimationRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrBadEstimation, s)
	}

	weeks := atoiOrZero(m[1])
	days := atoiOrZero(m[2])
	hours := atoiOrZero(m[3])

	days += hours / 8
	hours %= 8
	weeks += days / 5
	days %= 5

	var b strings.Builder
	if weeks > 0 {
		fmt.Fprintf(&b, "%dw", weeks)
	}
	if days > 0 {
		fmt.Fprintf(&b, "%dd", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%dh", hours)
	}
	return b.String(), nil
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
