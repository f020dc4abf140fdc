package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/daily-docket/internal/model"
	"github.com/nhle/daily-docket/internal/planner"
)

func newAddCmd(g *globalFlags) *cobra.Command {
	var (
		priority    string
		duration    int
		description string
		at          string
	)

	cmd := &cobra.Command{
		Use:   "add TITLE...",
		Short: "Add a task to the pool, or straight into an hour with --at",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParsePriority(priority)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			in := planner.TaskInput{
				Title:       strings.Join(args, " "),
				Description: description,
				Priority:    p,
				Duration:    duration,
			}

			if at == "" {
				t, err := e.store.Create(cmd.Context(), in)
				if err != nil {
					return userError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task added successfully! %s\n", t.ID)
				return nil
			}

			hour, err := parseHour(at)
			if err != nil {
				return err
			}
			out, err := e.rc.CreateInSlot(cmd.Context(), in, hour)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task created successfully! %s at %s%s\n",
				out.Task.ID, model.SlotLabel(hour), displacedNote(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "high, medium or low")
	cmd.Flags().IntVarP(&duration, "duration", "d", model.DurationDefault, "estimated minutes (15-480, 15 minute steps)")
	cmd.Flags().StringVar(&description, "description", "", "longer notes")
	cmd.Flags().StringVar(&at, "at", "", "schedule into this hour (e.g. 9, 14:00, 2pm)")
	return cmd
}

type listFlags struct {
	priority  string
	pool      bool
	scheduled bool
	done      bool
	open      bool
	asJSON    bool
}

func (f listFlags) filter() (planner.Filter, error) {
	var out planner.Filter
	if f.priority != "" {
		p, err := model.ParsePriority(f.priority)
		if err != nil {
			return out, err
		}
		out.Priority = &p
	}
	if f.pool || f.scheduled {
		v := f.scheduled
		out.Scheduled = &v
	}
	if f.done || f.open {
		v := f.done
		out.Completed = &v
	}
	return out, nil
}

func newListCmd(g *globalFlags) *cobra.Command {
	var f listFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List today's tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := f.filter()
			if err != nil {
				return err
			}

			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			tasks := e.store.List(filter)
			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tasks)
			}
			if len(tasks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks.")
				return nil
			}

			// Numbers refer to the unfiltered list so they stay valid as
			// arguments to the other commands.
			index := make(map[string]int)
			for i, t := range e.store.List(planner.Filter{}) {
				index[t.ID] = i + 1
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTaskTable(tasks, index))
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "only this priority")
	cmd.Flags().BoolVar(&f.pool, "pool", false, "only unscheduled tasks")
	cmd.Flags().BoolVar(&f.scheduled, "scheduled", false, "only scheduled tasks")
	cmd.Flags().BoolVar(&f.done, "done", false, "only completed tasks")
	cmd.Flags().BoolVar(&f.open, "open", false, "only open tasks")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print JSON")
	cmd.MarkFlagsMutuallyExclusive("pool", "scheduled")
	cmd.MarkFlagsMutuallyExclusive("done", "open")
	return cmd
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTaskTable(tasks []model.Task, index map[string]int) string {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		slot := "-"
		if h, ok := t.Slot(); ok {
			slot = model.SlotLabel(h)
		}
		done := " "
		if t.Completed {
			done = "x"
		}
		rows = append(rows, []string{
			strconv.Itoa(index[t.ID]),
			done,
			string(t.Priority),
			slot,
			fmt.Sprintf("%dm", t.Duration),
			t.Title,
			t.ID,
		})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("#", "✓", "PRIORITY", "SLOT", "DUR", "TITLE", "ID").
		Rows(rows...).
		Render()
}

func newScheduleCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "schedule TASK HOUR",
		Aliases: []string{"at"},
		Short:   "Put a task into an hour slot",
		Long: `Put a task into an hour slot. TASK is an id, the number shown by
"docket list", or part of a title or id. HOUR accepts 9, 09:00, 2pm and similar.

Completed tasks sitting in the slot are removed to make room; an open
task there refuses the move.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hour, err := parseHour(args[1])
			if err != nil {
				return err
			}
			return moveTask(cmd, g, args[0], planner.Slot(hour))
		},
	}
}

func newUnscheduleCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unschedule TASK",
		Short: "Move a task back to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return moveTask(cmd, g, args[0], planner.Pool)
		},
	}
}

func moveTask(cmd *cobra.Command, g *globalFlags, ref string, to planner.Location) error {
	e, err := openEnv(cmd, g, envOptions{})
	if err != nil {
		return err
	}
	defer e.Close()

	t, err := e.resolveTask(ref)
	if err != nil {
		return err
	}
	out, err := e.rc.MoveTo(cmd.Context(), t.ID, to)
	if err != nil {
		return userError(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), outcomeText(out))
	return nil
}

func outcomeText(out planner.Outcome) string {
	hour, _ := out.Task.Slot()
	if out.Noop {
		if out.Task.Scheduled {
			return fmt.Sprintf("Task is already at %s", model.SlotLabel(hour))
		}
		return "Task is already unscheduled"
	}
	var text string
	switch out.Kind {
	case planner.EventScheduled:
		text = "Task scheduled for " + model.SlotLabel(hour)
	case planner.EventMoved:
		text = "Task rescheduled to " + model.SlotLabel(hour)
	default:
		text = "Task moved to unscheduled"
	}
	return text + displacedNote(out)
}

func displacedNote(out planner.Outcome) string {
	if len(out.Displaced) == 0 {
		return ""
	}
	titles := make([]string, len(out.Displaced))
	for i, t := range out.Displaced {
		titles[i] = strconv.Quote(t.Title)
	}
	return " (replaced completed " + strings.Join(titles, ", ") + ")"
}

func newDoneCmd(g *globalFlags) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "done TASK",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			t, err := e.resolveTask(args[0])
			if err != nil {
				return err
			}
			if t.Completed != undo {
				state := "completed"
				if undo {
					state = "open"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Task %q is already %s\n", t.Title, state)
				return nil
			}

			t, _, err = e.rc.ToggleComplete(cmd.Context(), t.ID)
			if err != nil {
				return userError(err)
			}
			if t.Completed {
				fmt.Fprintf(cmd.OutOrStdout(), "Task completed: %s\n", t.Title)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Task reopened: %s\n", t.Title)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "reopen a completed task")
	return cmd
}

func newRmCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm TASK",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			t, err := e.resolveTask(args[0])
			if err != nil {
				return err
			}
			if _, _, err := e.rc.Delete(cmd.Context(), t.ID); err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task deleted: %s\n", t.Title)
			return nil
		},
	}
}

func newClearCmd(g *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Are you sure you want to clear all tasks for today?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.rc.Clear(cmd.Context()); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All tasks cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirm asks a y/N question on in. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show progress for today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd, g, envOptions{})
			if err != nil {
				return err
			}
			defer e.Close()

			s := planner.ComputeStats(e.store.List(planner.Filter{}))
			bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage())

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Total:      %d\n", s.Total)
			fmt.Fprintf(w, "Completed:  %d\n", s.Completed)
			fmt.Fprintf(w, "Remaining:  %d\n", s.Remaining)
			fmt.Fprintf(w, "Focus time: %dh\n", s.FocusHours())
			fmt.Fprintf(w, "Progress:   %s %d%%\n", bar.ViewAs(s.Ratio()), s.Percent)
			for _, p := range model.Priorities {
				fmt.Fprintf(w, "  %-7s %d\n", p, s.ByPriority.Get(p))
			}
			fmt.Fprintln(w, s.Message())
			return nil
		},
	}
}
