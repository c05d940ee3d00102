package engine

import (
	"regexp"
	"strconv"
	"strings"
)

// zoneCapMinutes is the steady-state duration ceiling.
const zoneCapMinutes = 30

const zoneStepMinutes = 2

var (
	// zoneLabelRe matches the heart-rate zone label, e.g. "Zone2" or "zone 3".
	zoneLabelRe = regexp.MustCompile(`(?i)zone\s*\d`)
	intTokenRe  = regexp.MustCompile(`\d+`)
)

// NextRowingPrescription advances a free-text rowing prescription.
//
// Zone work ("Zone2 26-30m") gains two minutes on its first duration token
// until it reaches 30. Intervals ("6x500m/90s") gain one repeat after a
// successful session. Text matching neither shape is returned unchanged.
func NextRowingPrescription(previous string, success bool) string {
	if strings.Contains(strings.ToLower(previous), "zone") {
		return advanceZoneText(previous)
	}

	n, tail, ok := splitLeadingCount(previous)
	if !ok || !success {
		return previous
	}
	return strconv.Itoa(n+1) + "x" + tail
}

func advanceZoneText(s string) string {
	from := 0
	if loc := zoneLabelRe.FindStringIndex(s); loc != nil {
		if loc[1] >= len(s) || !isDigit(s[loc[1]]) {
			from = loc[1]
		}
	}

	loc := intTokenRe.FindStringIndex(s[from:])
	if loc == nil {
		return s
	}
	start, end := from+loc[0], from+loc[1]
	minutes, err := strconv.Atoi(s[start:end])
	if err != nil || minutes >= zoneCapMinutes {
		return s
	}
	next := min(zoneCapMinutes, minutes+zoneStepMinutes)
	return s[:start] + strconv.Itoa(next) + s[end:]
}

// splitLeadingCount splits "6x500m/90s" into 6 and "500m/90s".
func splitLeadingCount(s string) (int, string, bool) {
	idx := strings.IndexByte(s, 'x')
	if idx < 0 {
		return 0, "", false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s[:idx]))
	if err != nil {
		return 0, "", false
	}
	return n, s[idx+1:], true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
