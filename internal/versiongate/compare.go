// Package versiongate refuses to start the module when the calendar
// dependency is missing or older than the supported minimum.
package versiongate

import (
	"strconv"
	"strings"
)

// Compare compares two dotted versions numerically, component by component.
// Missing components count as 0, a leading "v" is ignored and anything after
// a "-" or "+" is dropped. Non-numeric components count as 0.
func Compare(a, b string) int {
	pa, pb := parse(a), parse(b)
	n := max(len(pa), len(pb))
	for i := range n {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func parse(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		out[i] = n
	}
	return out
}

// Satisfies reports whether installed is equal to or newer than minimum.
func Satisfies(installed, minimum string) bool {
	return installed == minimum || Compare(installed, minimum) > 0
}
