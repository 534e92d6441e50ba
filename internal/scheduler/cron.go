// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CronExpression is a parsed 5-field cron expression:
// minute hour day-of-month month day-of-week.
type CronExpression struct {
	Minutes     []int // 0-59
	Hours       []int // 0-23
	DaysOfMonth []int // 1-31
	Months      []int // 1-12
	DaysOfWeek  []int // 0-6 (0 = Sunday)
}

// maxSearch bounds NextRun's minute walk.
const maxSearch = 366 * 24 * 60 * 4

// ParseCron parses a 5-field cron expression. Each field accepts "*", a
// value, a range "n-m", a list "a,b,c" and steps "*/s" or "n-m/s". Day of
// week 7 is Sunday.
//
//	"0 */6 * * *"   every six hours
//	"30 3 * * 1"    Mondays at 03:30
func ParseCron(expr string) (*CronExpression, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	specs := []struct {
		name     string
		min, max int
	}{
		{"minute", 0, 59},
		{"hour", 0, 23},
		{"day-of-month", 1, 31},
		{"month", 1, 12},
		{"day-of-week", 0, 7},
	}
	parsed := make([][]int, len(specs))
	for i, spec := range specs {
		values, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field: %w", spec.name, err)
		}
		parsed[i] = values
	}

	dow := parsed[4]
	for i, d := range dow {
		if d == 7 {
			dow[i] = 0
		}
	}

	return &CronExpression{
		Minutes:     parsed[0],
		Hours:       parsed[1],
		DaysOfMonth: parsed[2],
		Months:      parsed[3],
		DaysOfWeek:  unique(dow),
	}, nil
}

// NextRun returns the first matching minute strictly after `after`, in loc
// (UTC when nil). It returns the zero time when nothing matches within four
// years, which only happens for impossible dates such as "0 0 31 2 *".
func (c *CronExpression) NextRun(after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t := after.In(loc).Truncate(time.Minute).Add(time.Minute)
	for range maxSearch {
		if c.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

// matches follows cron's rule that day-of-month and day-of-week are OR'd
// when both are restricted.
func (c *CronExpression) matches(t time.Time) bool {
	if !slices.Contains(c.Minutes, t.Minute()) ||
		!slices.Contains(c.Hours, t.Hour()) ||
		!slices.Contains(c.Months, int(t.Month())) {
		return false
	}

	domMatch := slices.Contains(c.DaysOfMonth, t.Day())
	dowMatch := slices.Contains(c.DaysOfWeek, int(t.Weekday()))
	domAny := len(c.DaysOfMonth) == 31
	dowAny := len(c.DaysOfWeek) == 7

	switch {
	case domAny && dowAny:
		return true
	case domAny:
		return dowMatch
	case dowAny:
		return domMatch
	default:
		return domMatch || dowMatch
	}
}

func parseField(field string, minVal, maxVal int) ([]int, error) {
	if field == "*" {
		return rangeInts(minVal, maxVal), nil
	}
	var out []int
	for _, part := range strings.Split(field, ",") {
		values, err := parsePart(part, minVal, maxVal)
		if err != nil {
			return nil, err
		}
		out = append(out, values...)
	}
	return unique(out), nil
}

func parsePart(part string, minVal, maxVal int) ([]int, error) {
	base, stepStr, hasStep := strings.Cut(part, "/")

	start, end := minVal, maxVal
	if base != "*" {
		lo, hi, isRange := strings.Cut(base, "-")
		var err error
		if start, err = atoi(lo); err != nil {
			return nil, err
		}
		switch {
		case isRange:
			if end, err = atoi(hi); err != nil {
				return nil, err
			}
		case !hasStep:
			end = start
		}
		if start > end || start < minVal || end > maxVal {
			return nil, fmt.Errorf("value out of range: %s (min=%d, max=%d)", base, minVal, maxVal)
		}
	}

	step := 1
	if hasStep {
		s, err := strconv.Atoi(stepStr)
		if err != nil || s <= 0 {
			return nil, fmt.Errorf("invalid step value: %s", stepStr)
		}
		step = s
	}

	var out []int
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out, nil
}

func atoi(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid value: %s", s)
	}
	return v, nil
}

func rangeInts(start, end int) []int {
	out := make([]int, end-start+1)
	for i := range out {
		out[i] = start + i
	}
	return out
}

func unique(values []int) []int {
	slices.Sort(values)
	return slices.Compact(values)
}
