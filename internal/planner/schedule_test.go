package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-docket/internal/model"
)

func placed(id string, hour int, completed bool) model.Task {
	t := model.Task{ID: id, Title: id, Completed: completed}
	t.Place(hour)
	return t
}

func TestSchedule_State(t *testing.T) {
	s := NewSchedule([]model.Task{
		placed("a", 9, false),
		placed("b", 10, true),
		{ID: "pool", Title: "pool"},
	})

	assert.Equal(t, SlotActive, s.State(9))
	assert.Equal(t, SlotCompleted, s.State(10))
	assert.Equal(t, SlotEmpty, s.State(11))
	assert.Equal(t, "completed", s.State(10).String())

	active, ok := s.Active(9)
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)
	_, ok = s.Active(10)
	assert.False(t, ok)
}

func TestSchedule_Check(t *testing.T) {
	s := NewSchedule([]model.Task{
		placed("active", 9, false),
		placed("done", 10, true),
	})

	tests := []struct {
		name         string
		hour         int
		taskID       string
		wantErr      bool
		wantDisplace []string
	}{
		{"empty slot", 11, "x", false, nil},
		{"distinct active occupant", 9, "x", true, nil},
		{"new task onto active slot", 9, "", true, nil},
		{"incoming is the occupant", 9, "active", false, nil},
		{"completed occupant displaced", 10, "x", false, []string{"done"}},
		{"completed task onto itself", 10, "done", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			displace, err := s.Check(tt.hour, tt.taskID)
			if tt.wantErr {
				var se *SlotOccupiedError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.hour, se.Hour)
				assert.Equal(t, "active", se.OccupantID)
				return
			}
			require.NoError(t, err)
			var ids []string
			for _, d := range displace {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantDisplace, ids)
		})
	}
}

func TestSchedule_OutOfRangePanics(t *testing.T) {
	s := NewSchedule(nil)
	assert.Panics(t, func() { s.State(5) })
	assert.Panics(t, func() { _, _ = s.Check(24, "x") })
	assert.NotPanics(t, func() { s.State(model.SlotStart) })
	assert.NotPanics(t, func() { s.State(model.SlotEnd) })
}

func TestSchedule_Grid(t *testing.T) {
	s := NewSchedule([]model.Task{
		placed("old", 9, true),
		placed("new", 9, false),
	})
	grid := s.Grid()
	require.Len(t, grid, 18)
	assert.Equal(t, 6, grid[0].Hour)
	assert.Equal(t, "6:00 AM", grid[0].Label)
	assert.Equal(t, 23, grid[17].Hour)
	assert.Equal(t, "11:00 PM", grid[17].Label)

	nine := grid[3]
	assert.Equal(t, SlotActive, nine.State)
	require.Len(t, nine.Tasks, 2)
	assert.Equal(t, "new", nine.Tasks[0].ID, "active occupant listed first")
}

func TestSchedule_Conflicts(t *testing.T) {
	s := NewSchedule([]model.Task{
		placed("a", 9, false),
		placed("b", 9, false),
		placed("c", 12, false),
		placed("d", 12, true),
	})
	assert.Equal(t, []int{9}, s.Conflicts())
}
