// Package cron parses minute/hour cron expressions and drives
// time-triggered task creation, kept close to the teacher's own
// hand-rolled parser: no cron expression library appears anywhere in the
// retrieval pack, so a minute/hour parser is the pack's own idiom for
// this concern, not a stdlib fallback.
package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is a parsed minute/hour cron expression.
type Schedule struct {
	Minutes []int
	Hours   []int
}

// Parse parses a two-field "minute hour" cron expression, supporting `*`,
// `*/N` step values, and literal values.
func Parse(expr string) (*Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 2 {
		return nil, fmt.Errorf("invalid cron expression, expected 2 fields (minute hour), got %d", len(fields))
	}

	s := &Schedule{}
	var err error

	s.Minutes, err = parseField(fields[0], 0, 59)
	if err != nil {
		return nil, fmt.Errorf("invalid minute field: %w", err)
	}
	s.Hours, err = parseField(fields[1], 0, 23)
	if err != nil {
		return nil, fmt.Errorf("invalid hour field: %w", err)
	}
	return s, nil
}

func parseField(field string, min, max int) ([]int, error) {
	var result []int

	if field == "*" {
		for i := min; i <= max; i++ {
			result = append(result, i)
		}
		return result, nil
	}

	if strings.HasPrefix(field, "*/") {
		stepStr := strings.TrimPrefix(field, "*/")
		step, err := strconv.Atoi(stepStr)
		if err != nil {
			return nil, fmt.Errorf("invalid step value: %s", stepStr)
		}
		if step <= 0 {
			return nil, fmt.Errorf("step must be positive")
		}
		for i := min; i <= max; i += step {
			result = append(result, i)
		}
		return result, nil
	}

	val, err := strconv.Atoi(field)
	if err != nil {
		return nil, fmt.Errorf("invalid value: %s", field)
	}
	if val < min || val > max {
		return nil, fmt.Errorf("value %d out of range [%d-%d]", val, min, max)
	}
	return []int{val}, nil
}

// Next returns the earliest instant strictly after `after` that matches
// the schedule, searching at most 48 hours ahead.
func (s *Schedule) Next(after time.Time) time.Time {
	t := after.Add(time.Minute).Truncate(time.Minute)

	for i := 0; i < 2880; i++ {
		if s.matches(t) {
			return t
		}
		t = t.Add(time.Minute)
	}
	return after.Add(48 * time.Hour)
}

func (s *Schedule) matches(t time.Time) bool {
	return contains(s.Minutes, t.Minute()) && contains(s.Hours, t.Hour())
}

func contains(slice []int, val int) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}
