package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnrecognizedPrescription is returned by ParsePrescription for text in
// neither canonical shape.
var ErrUnrecognizedPrescription = errors.New("unrecognized prescription")

// Prescription is a structured conditioning protocol. The concrete types
// are Intervals and ZoneDuration.
type Prescription interface {
	fmt.Stringer
	Kind() string
	Advance(success bool) Prescription
}

// Intervals is a repeat-distance protocol such as 6x500m/90s.
type Intervals struct {
	Count     int `json:"count"`
	DistanceM int `json:"distance_m"`
	RestSec   int `json:"rest_sec"`
}

// ZoneDuration is a steady-state protocol such as Zone2 26-30m. A single
// duration has MinMinutes == MaxMinutes.
type ZoneDuration struct {
	Zone       int `json:"zone"`
	MinMinutes int `json:"min_minutes"`
	MaxMinutes int `json:"max_minutes"`
}

var (
	intervalsRe = regexp.MustCompile(`^(\d+)x(\d+)m/(\d+)s$`)
	zoneRe      = regexp.MustCompile(`^(?i:zone)\s?(\d)\s+(\d+)(?:-(\d+))?m$`)
)

// ParsePrescription parses the canonical interval and zone forms.
func ParsePrescription(s string) (Prescription, error) {
	s = strings.TrimSpace(s)
	if m := intervalsRe.FindStringSubmatch(s); m != nil {
		return Intervals{Count: atoi(m[1]), DistanceM: atoi(m[2]), RestSec: atoi(m[3])}, nil
	}
	if m := zoneRe.FindStringSubmatch(s); m != nil {
		z := ZoneDuration{Zone: atoi(m[1]), MinMinutes: atoi(m[2])}
		z.MaxMinutes = z.MinMinutes
		if m[3] != "" {
			z.MaxMinutes = atoi(m[3])
		}
		return z, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnrecognizedPrescription, s)
}

func (Intervals) Kind() string { return "intervals" }

func (p Intervals) String() string {
	return fmt.Sprintf("%dx%dm/%ds", p.Count, p.DistanceM, p.RestSec)
}

// Advance adds one repeat after a successful session.
func (p Intervals) Advance(success bool) Prescription {
	if success {
		p.Count++
	}
	return p
}

func (ZoneDuration) Kind() string { return "zone" }

func (p ZoneDuration) String() string {
	if p.MinMinutes == p.MaxMinutes {
		return fmt.Sprintf("Zone%d %dm", p.Zone, p.MinMinutes)
	}
	return fmt.Sprintf("Zone%d %d-%dm", p.Zone, p.MinMinutes, p.MaxMinutes)
}

// Advance lengthens the lower duration by two minutes up to 30, matching
// NextRowingPrescription on the serialized text.
func (p ZoneDuration) Advance(bool) Prescription {
	if p.MinMinutes >= zoneCapMinutes {
		return p
	}
	next := min(zoneCapMinutes, p.MinMinutes+zoneStepMinutes)
	if p.MaxMinutes == p.MinMinutes {
		p.MaxMinutes = next
	}
	p.MinMinutes = next
	return p
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
