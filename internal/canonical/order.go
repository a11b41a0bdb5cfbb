package canonical

import (
	"cmp"
	"math"
	"strconv"
	"strings"
)

func parseId(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// compareIds orders establishment ids numerically. An id that does not parse sorts after
// every id that does, two ids that do not parse compare equal.
func compareIds(a, b string) int {
	av, aok := parseId(a)
	bv, bok := parseId(b)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	return cmp.Compare(av, bv)
}
