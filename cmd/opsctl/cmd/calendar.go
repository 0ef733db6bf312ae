package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/cleaning-ops/internal/calendar"
	"github.com/example/cleaning-ops/internal/client"
)

const dateLayout = "2006-01-02"

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show the schedule and move jobs",
}

var calendarShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a day, week or month grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := location()
		if err != nil {
			return err
		}
		view, _ := cmd.Flags().GetString("view")
		date, _ := cmd.Flags().GetString("date")

		grid, err := newClient().CalendarView(commandContext(cmd), view, date)
		if err != nil {
			return fmt.Errorf("error fetching calendar: %w", err)
		}
		printCalendar(cmd, grid, loc)
		return nil
	},
}

var calendarTimelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Print the hourly timeline of one day",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := location()
		if err != nil {
			return err
		}
		date, _ := cmd.Flags().GetString("date")

		timeline, err := newClient().Timeline(commandContext(cmd), date)
		if err != nil {
			return fmt.Errorf("error fetching timeline: %w", err)
		}

		cmd.Printf("Timeline for %s\n", timeline.Date)
		if len(timeline.Blocks) == 0 {
			cmd.Println("No jobs scheduled.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "FROM\tTO\tJOB\tTITLE\tOFFSET")
		for _, b := range timeline.Blocks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f+%.0f\n",
				b.Job.Start.In(loc).Format("15:04"), b.Job.End.In(loc).Format("15:04"),
				b.Job.ID, b.Job.Title, b.Top, b.Height)
		}
		return w.Flush()
	},
}

var calendarMoveCmd = &cobra.Command{
	Use:   "move [job_id]",
	Short: "Drop a job onto a new day and time slot",
	Long: `Move a job through the same optimistic board the calendar uses. The job keeps its
duration. When the server rejects the move the board is reloaded and the
conflict is reported, with the override to use when the move is intended.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jobID := args[0]
		loc, err := location()
		if err != nil {
			return err
		}
		dateValue, _ := cmd.Flags().GetString("date")
		slot, _ := cmd.Flags().GetString("time")
		view, _ := cmd.Flags().GetString("view")
		from, _ := cmd.Flags().GetString("from")

		day, err := time.ParseInLocation(dateLayout, dateValue, loc)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD")
		}
		hour, minute, err := parseSlot(slot)
		if err != nil {
			return err
		}
		if from == "" {
			from = dateValue
		}

		ctx := commandContext(cmd)
		board := calendar.NewBoard(client.NewCalendarGateway(newClient(), view, from, loc), nil)
		if err := board.Load(ctx); err != nil {
			return fmt.Errorf("error loading calendar: %w", err)
		}

		moved, err := board.Drop(ctx, jobID, calendar.Day{Date: day}, hour, minute)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Override != "" {
				cmd.Printf("Move rejected: %s (override: %s)\n", apiErr.Message, apiErr.Override)
			}
			if errors.Is(err, calendar.ErrJobNotOnBoard) {
				return fmt.Errorf("job %s is not in the %s view around %s; pass --from with a date near its current slot", jobID, view, from)
			}
			return fmt.Errorf("move failed: %w", err)
		}

		cmd.Printf("Moved %s to %s - %s\n", moved.ID, moved.Start.In(loc).Format("Mon 2 Jan 15:04"), moved.End().In(loc).Format("15:04"))
		return nil
	},
}

func parseSlot(value string) (int, int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("--time must be HH:MM")
	}
	return t.Hour(), t.Minute(), nil
}

func printCalendar(cmd *cobra.Command, grid *client.CalendarView, loc *time.Location) {
	cmd.Printf("Calendar (%s) %s to %s\n", grid.View, grid.First, grid.Last)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tJOB\tTITLE\tSTATUS\tSTAFF")
	for _, day := range grid.Days {
		if len(day.Jobs) == 0 {
			continue
		}
		for _, job := range day.Jobs {
			staff := "-"
			if len(job.EmployeeIDs) > 0 {
				staff = strings.Join(job.EmployeeIDs, ", ")
			}
			fmt.Fprintf(w, "%s\t%s-%s\t%s\t%s\t%s\t%s\n", day.Date,
				job.Start.In(loc).Format("15:04"), job.End.In(loc).Format("15:04"),
				job.ID, job.Title, job.Status, staff)
		}
	}
	w.Flush()
	if len(grid.Unplaced) > 0 {
		cmd.Printf("Unplaced: %s\n", strings.Join(grid.Unplaced, ", "))
	}
}

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.AddCommand(calendarShowCmd, calendarTimelineCmd, calendarMoveCmd)

	calendarShowCmd.Flags().String("view", "week", "day, week or month")
	calendarShowCmd.Flags().String("date", "", "reference date YYYY-MM-DD (default today)")

	calendarTimelineCmd.Flags().String("date", "", "day YYYY-MM-DD (default today)")

	calendarMoveCmd.Flags().String("date", "", "target day YYYY-MM-DD")
	calendarMoveCmd.Flags().String("time", "", "target slot HH:MM on a 30 minute boundary")
	calendarMoveCmd.Flags().String("view", "month", "grid loaded to find the job")
	calendarMoveCmd.Flags().String("from", "", "reference date of the loaded grid (default --date)")
	calendarMoveCmd.MarkFlagRequired("date")
	calendarMoveCmd.MarkFlagRequired("time")
}
