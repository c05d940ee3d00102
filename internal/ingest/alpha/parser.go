// Package alpha imports Alpha Progression CSV exports into scheduled
// exercises.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/ultimatecoach/internal/models"
)

var (
	// sessionHeaderRe matches: "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	sessionHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// exerciseHeaderRe matches: "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// setDataRe matches: 1;115;8;1
	setDataRe = regexp.MustCompile(`^(\d+);([^;]+);(\d+);([^;]*)$`)

	// warmupRe matches: WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)
)

const columnHeader = "#;KG;REPS;RIR"

// parser accumulates sessions line by line. A blank line or a new session
// header closes the current session.
type parser struct {
	sessions []models.AlphaSession
	session  *models.AlphaSession
	exercise *models.AlphaExercise
}

// Parse reads an Alpha Progression CSV export and returns parsed sessions.
// Unknown lines such as notes are skipped; malformed numbers are errors.
func Parse(r io.Reader) ([]models.AlphaSession, error) {
	p := &parser{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.endSession()
	return p.sessions, nil
}

func (p *parser) line(line string) error {
	switch {
	case line == "":
		p.endSession()
		return nil
	case line == columnHeader:
		return nil
	}

	if m := sessionHeaderRe.FindStringSubmatch(line); m != nil {
		p.endSession()
		date, err := parseSessionDate(m[2])
		if err != nil {
			return err
		}
		p.session = &models.AlphaSession{Name: m[1], Date: date, Duration: m[3]}
		return nil
	}

	if m := exerciseHeaderRe.FindStringSubmatch(line); m != nil {
		if p.session == nil {
			return fmt.Errorf("exercise without session: %q", line)
		}
		p.endExercise()
		num, _ := strconv.Atoi(m[1])
		targetReps, _ := strconv.Atoi(m[4])
		p.exercise = &models.AlphaExercise{
			Number:     num,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: targetReps,
		}
		if m[6] != "" {
			warmups, err := parseWarmups(m[6])
			if err != nil {
				return err
			}
			p.exercise.Sets = append(p.exercise.Sets, warmups...)
		}
		return nil
	}

	if m := setDataRe.FindStringSubmatch(line); m != nil {
		if p.exercise == nil {
			return fmt.Errorf("set data without exercise: %q", line)
		}
		set, err := parseWorkingSet(m[1], m[2], m[3], m[4])
		if err != nil {
			return err
		}
		p.exercise.Sets = append(p.exercise.Sets, set)
	}
	return nil
}

func (p *parser) endExercise() {
	if p.exercise != nil {
		p.session.Exercises = append(p.session.Exercises, *p.exercise)
		p.exercise = nil
	}
}

func (p *parser) endSession() {
	if p.session == nil {
		return
	}
	p.endExercise()
	p.sessions = append(p.sessions, *p.session)
	p.session = nil
}

// parseSessionDate parses "2026-02-19 4:54" and "2026-02-19 16:54".
func parseSessionDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse session date %q", s)
}

func parseWorkingSet(num, weight, reps, rir string) (models.AlphaSet, error) {
	n, _ := strconv.Atoi(num)
	w, bw, err := parseWeight(weight)
	if err != nil {
		return models.AlphaSet{}, err
	}
	r, _ := strconv.Atoi(reps)
	rirValue, err := parseRIR(rir)
	if err != nil {
		return models.AlphaSet{}, err
	}
	return models.AlphaSet{
		Number:           n,
		WeightKg:         w,
		IsBodyweightPlus: bw,
		Reps:             r,
		RIR:              rirValue,
	}, nil
}

// parseWarmups extracts warmup sets from the exercise header's second field.
// Example: "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps"
func parseWarmups(s string) ([]models.AlphaSet, error) {
	var sets []models.AlphaSet
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw, err := parseWeight(m[2])
		if err != nil {
			return nil, err
		}
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, models.AlphaSet{
			Number:           num,
			WeightKg:         weight,
			IsBodyweightPlus: bw,
			Reps:             reps,
			RIR:              -1,
			IsWarmup:         true,
		})
	}
	return sets, nil
}

// parseWeight handles European decimals and bodyweight-plus notation.
// "+35" -> (35, true), "102,5" -> (102.5, false), "+0" -> (0, true)
func parseWeight(s string) (float64, bool, error) {
	s = strings.TrimSpace(s)
	bw := strings.HasPrefix(s, "+")
	w, err := parseEuropeanFloat(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, false, fmt.Errorf("weight: %w", err)
	}
	return w, bw, nil
}

// parseRIR returns -1 for an empty or dashed RIR cell, the value Alpha
// Progression itself writes for untracked sets.
func parseRIR(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return -1, nil
	}
	rir, err := parseEuropeanFloat(s)
	if err != nil {
		return 0, fmt.Errorf("rir: %w", err)
	}
	return rir, nil
}

// parseEuropeanFloat converts "102,5" to 102.5.
func parseEuropeanFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}
