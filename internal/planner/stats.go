package planner

import (
	"math"

	"github.com/nhle/daily-docket/internal/model"
)

// Stats aggregates the task list for the stats panel.
type Stats struct {
	Total        int
	Completed    int
	Remaining    int
	FocusMinutes int
	Percent      int
	ByPriority   model.PriorityCounts
}

// ComputeStats derives Stats from tasks. A task without a duration counts
// as the default duration toward focus time.
func ComputeStats(tasks []model.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
		d := t.Duration
		if d <= 0 {
			d = model.DurationDefault
		}
		s.FocusMinutes += d
		s.ByPriority.Add(t.Priority)
	}
	s.Remaining = s.Total - s.Completed
	s.Percent = percent(s.Completed, s.Total)
	return s
}

// percent rounds half up, so 1 of 8 is 13 and 1 of 3 is 33.
func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(part)/float64(total)*100 + 0.5))
}

// FocusHours is focus time rounded to whole hours.
func (s Stats) FocusHours() int {
	return int(math.Floor(float64(s.FocusMinutes)/60 + 0.5))
}

// Ratio returns completion as a fraction in [0, 1].
func (s Stats) Ratio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Message returns an encouragement matching the completion level.
func (s Stats) Message() string {
	switch {
	case s.Total > 0 && s.Percent == 100:
		return "Amazing! You've completed all your tasks!"
	case s.Percent >= 75:
		return "You're on fire! Almost there!"
	case s.Percent >= 50:
		return "Great progress! Keep it up!"
	case s.Percent >= 25:
		return "Good start! You've got this!"
	case s.Completed > 0:
		return "Every step counts! Keep going!"
	default:
		return "Ready to make today amazing!"
	}
}
