package planner

import (
	"fmt"

	"github.com/nhle/daily-docket/internal/model"
)

// SlotState classifies an hour on the grid.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotActive
	SlotCompleted
)

func (s SlotState) String() string {
	switch s {
	case SlotActive:
		return "active"
	case SlotCompleted:
		return "completed"
	default:
		return "empty"
	}
}

// SlotView is one grid row prepared for rendering.
type SlotView struct {
	Hour  int
	Label string
	State SlotState

	// Tasks holds the occupants, the active one (if any) first.
	Tasks []model.Task
}

// Schedule is a read-only view of slot occupancy derived from a task
// snapshot. It holds no state of its own.
type Schedule struct {
	slots map[int][]model.Task
}

// NewSchedule indexes the scheduled tasks by hour.
func NewSchedule(tasks []model.Task) Schedule {
	slots := make(map[int][]model.Task)
	for _, t := range tasks {
		if h, ok := t.Slot(); ok && t.Scheduled {
			slots[h] = append(slots[h], t)
		}
	}
	return Schedule{slots: slots}
}

// mustSlot panics on hours outside the grid. The grid is fixed, so such
// an hour can only come from a programming error.
func mustSlot(hour int) {
	if !model.ValidSlot(hour) {
		panic(fmt.Sprintf("planner: slot %d outside %d..%d", hour, model.SlotStart, model.SlotEnd))
	}
}

// Occupants returns every task whose slot is hour.
func (s Schedule) Occupants(hour int) []model.Task {
	mustSlot(hour)
	return append([]model.Task(nil), s.slots[hour]...)
}

// Active returns the non-completed occupant of hour.
func (s Schedule) Active(hour int) (model.Task, bool) {
	mustSlot(hour)
	for _, t := range s.slots[hour] {
		if !t.Completed {
			return t, true
		}
	}
	return model.Task{}, false
}

// State classifies hour.
func (s Schedule) State(hour int) SlotState {
	mustSlot(hour)
	occupants := s.slots[hour]
	if len(occupants) == 0 {
		return SlotEmpty
	}
	for _, t := range occupants {
		if !t.Completed {
			return SlotActive
		}
	}
	return SlotCompleted
}

// Check applies the occupancy rule for placing taskID on hour. An empty
// taskID stands for a task that does not exist yet. On success it returns
// the completed occupants that must be displaced (deleted) first.
func (s Schedule) Check(hour int, taskID string) ([]model.Task, error) {
	mustSlot(hour)
	var displace []model.Task
	for _, t := range s.slots[hour] {
		if taskID != "" && t.ID == taskID {
			continue
		}
		if !t.Completed {
			return nil, &SlotOccupiedError{Hour: hour, OccupantID: t.ID, TaskID: taskID}
		}
		displace = append(displace, t)
	}
	return displace, nil
}

// Conflicts returns the hours holding more than one active task. It is
// empty whenever the store invariant holds.
func (s Schedule) Conflicts() []int {
	var hours []int
	for _, h := range model.SlotHours() {
		active := 0
		for _, t := range s.slots[h] {
			if !t.Completed {
				active++
			}
		}
		if active > 1 {
			hours = append(hours, h)
		}
	}
	return hours
}

// Grid returns one row per hour from SlotStart to SlotEnd.
func (s Schedule) Grid() []SlotView {
	rows := make([]SlotView, 0, model.SlotEnd-model.SlotStart+1)
	for _, h := range model.SlotHours() {
		row := SlotView{Hour: h, Label: model.SlotLabel(h), State: s.State(h)}
		var completed []model.Task
		for _, t := range s.slots[h] {
			if t.Completed {
				completed = append(completed, t)
			} else {
				row.Tasks = append(row.Tasks, t)
			}
		}
		row.Tasks = append(row.Tasks, completed...)
		rows = append(rows, row)
	}
	return rows
}
