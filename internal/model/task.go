package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Priority is the importance level of a task.
type Priority string

// Priority levels.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from most to least important.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts user input into a Priority. An empty string
// yields the default (medium).
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Duration bounds, in minutes.
const (
	DurationMin     = 15
	DurationMax     = 480
	DurationStep    = 15
	DurationDefault = 30
)

// NormalizeDuration clamps minutes into [DurationMin, DurationMax] and rounds
// to the nearest DurationStep. Zero or negative input yields the default.
func NormalizeDuration(minutes int) int {
	if minutes <= 0 {
		return DurationDefault
	}
	if minutes < DurationMin {
		return DurationMin
	}
	if minutes > DurationMax {
		return DurationMax
	}
	rounded := ((minutes + DurationStep/2) / DurationStep) * DurationStep
	if rounded > DurationMax {
		rounded = DurationMax
	}
	return rounded
}

// Schedule grid bounds: one slot per hour, inclusive.
const (
	SlotStart = 6
	SlotEnd   = 23
)

// ValidSlot reports whether hour is a slot on the schedule grid.
func ValidSlot(hour int) bool {
	return hour >= SlotStart && hour <= SlotEnd
}

// SlotHours returns every grid hour in order.
func SlotHours() []int {
	hours := make([]int, 0, SlotEnd-SlotStart+1)
	for h := SlotStart; h <= SlotEnd; h++ {
		hours = append(hours, h)
	}
	return hours
}

// SlotTime formats an hour as the "HH:00" wall-clock string stored in
// Task.ScheduledTime.
func SlotTime(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// SlotLabel formats an hour for display, e.g. "9:00 AM".
func SlotLabel(hour int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	display := hour
	switch {
	case hour > 12:
		display = hour - 12
	case hour == 0:
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, suffix)
}

// Task is a single unit of work in the day's plan.
type Task struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Priority      Priority  `json:"priority"`
	Duration      int       `json:"duration"`
	Completed     bool      `json:"completed"`
	Scheduled     bool      `json:"scheduled"`
	TimeSlot      *int      `json:"timeSlot"`
	ScheduledTime *string   `json:"scheduledTime"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Slot returns the task's hour slot, if any.
func (t Task) Slot() (int, bool) {
	if t.TimeSlot == nil {
		return 0, false
	}
	return *t.TimeSlot, true
}

// InSlot reports whether the task occupies the given hour.
func (t Task) InSlot(hour int) bool {
	h, ok := t.Slot()
	return ok && h == hour
}

// Active reports whether the task is scheduled and not yet completed.
func (t Task) Active() bool {
	return t.Scheduled && !t.Completed
}

// Place sets the scheduling fields so the task occupies hour.
func (t *Task) Place(hour int) {
	h := hour
	st := SlotTime(hour)
	t.Scheduled = true
	t.TimeSlot = &h
	t.ScheduledTime = &st
}

// Unplace clears the scheduling fields, returning the task to the pool.
func (t *Task) Unplace() {
	t.Scheduled = false
	t.TimeSlot = nil
	t.ScheduledTime = nil
}

// Clone returns a copy that shares no pointers with t.
func (t Task) Clone() Task {
	c := t
	if t.TimeSlot != nil {
		h := *t.TimeSlot
		c.TimeSlot = &h
	}
	if t.ScheduledTime != nil {
		s := *t.ScheduledTime
		c.ScheduledTime = &s
	}
	return c
}

// UnmarshalJSON accepts timeSlot and duration as numbers or numeric
// strings. Blobs written by older clients store the hour as "9" and the
// duration as "45". A duration that is not a number decodes as 0, which
// NormalizeDuration turns into the default.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	aux := struct {
		*plain
		TimeSlot json.RawMessage `json:"timeSlot"`
		Duration json.RawMessage `json:"duration"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.Duration = 0
	if d, ok, err := looseInt(aux.Duration); err == nil && ok {
		t.Duration = d
	}

	t.TimeSlot = nil
	hour, ok, err := looseInt(aux.TimeSlot)
	if err != nil {
		return fmt.Errorf("decoding timeSlot: %w", err)
	}
	if ok {
		t.TimeSlot = &hour
	}
	return nil
}

// looseInt decodes a JSON number or numeric string. ok is false for an
// absent, null or empty value. Fractions are truncated.
func looseInt(raw json.RawMessage) (n int, ok bool, err error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, false, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false, fmt.Errorf("%s is neither a number nor a string", text)
		}
		num = json.Number(strings.TrimSpace(s))
		if num == "" {
			return 0, false, nil
		}
	}

	if i, err := strconv.Atoi(string(num)); err == nil {
		return i, true, nil
	}
	f, err := strconv.ParseFloat(string(num), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("%q is not a number", string(num))
	}
	return int(f), true, nil
}
