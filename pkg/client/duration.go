package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration implements spec §4.9's duration grammar: `NhNmNs` with any
// subset of components present, in fixed order h then m then s, or a bare
// integer meaning seconds. Grounded on ducktape's utils/util.py
// parse_duration_string.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if !strings.ContainsAny(s, "hms") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}

	idx := 0
	readComponent := func(unit byte) (int64, bool, error) {
		start := idx
		for idx < len(s) && s[idx] >= '0' && s[idx] <= '9' {
			idx++
		}
		if idx == start {
			return 0, false, nil
		}
		if idx >= len(s) || s[idx] != unit {
			idx = start
			return 0, false, nil
		}
		val, err := strconv.ParseInt(s[start:idx], 10, 64)
		idx++
		return val, true, err
	}

	h, hok, err := readComponent('h')
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	m, mok, err := readComponent('m')
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	sec, sok, err := readComponent('s')
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if idx != len(s) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if !hok && !mok && !sok {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	total := h*3600 + m*60 + sec
	return time.Duration(total) * time.Second, nil
}

// FormatDuration is ParseDuration's inverse, always emitting an explicit
// NhNmNs form (h and m omitted when zero; s always present when both are
// zero) so that ParseDuration(FormatDuration(d)) == d for every
// non-negative d representable as whole seconds (spec §8).
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	var b strings.Builder
	if h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	if s > 0 || (h == 0 && m == 0) {
		fmt.Fprintf(&b, "%ds", s)
	}
	return b.String()
}
