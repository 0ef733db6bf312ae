package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/cleaning-ops/internal/client"
)

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Classify staff as available or busy for a time window",
	Long: `Check every employee, or the listed ones, against the scheduled jobs overlapping the
window. Without --end the window lasts --duration minutes (default 60, minimum 60).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := location()
		if err != nil {
			return err
		}
		startValue, _ := cmd.Flags().GetString("start")
		if startValue == "" {
			return fmt.Errorf("--start is required")
		}
		start, err := parseLocalTime(startValue, loc)
		if err != nil {
			return err
		}

		query := client.AvailabilityQuery{Start: start}
		query.DurationMinutes, _ = cmd.Flags().GetInt("duration")
		query.ExcludeJobID, _ = cmd.Flags().GetString("exclude")
		query.EmployeeIDs, _ = cmd.Flags().GetStringSlice("employees")
		if endValue, _ := cmd.Flags().GetString("end"); endValue != "" {
			end, err := parseLocalTime(endValue, loc)
			if err != nil {
				return err
			}
			query.End = &end
		}

		report, err := newClient().Availability(commandContext(cmd), query)
		if err != nil {
			return fmt.Errorf("error checking availability: %w", err)
		}

		cmd.Printf("Window: %s - %s\n", report.Start.In(loc).Format("Mon 2 Jan 15:04"), report.End.In(loc).Format("15:04"))
		if !report.Known {
			cmd.Printf("Availability unknown: %s\n", report.Reason)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "EMPLOYEE\tSTATUS\tCONFLICTS")
		for _, e := range report.Employees {
			conflicts := "-"
			if len(e.ConflictingJobIDs) > 0 {
				ids := append([]string(nil), e.ConflictingJobIDs...)
				sort.Strings(ids)
				conflicts = strings.Join(ids, ", ")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.EmployeeID, e.Status, conflicts)
		}
		w.Flush()

		for _, s := range report.Skipped {
			cmd.Printf("Skipped %s: %s\n", s.JobID, s.Reason)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(availabilityCmd)
	availabilityCmd.Flags().String("start", "", "window start, YYYY-MM-DDTHH:MM in --timezone or RFC3339")
	availabilityCmd.Flags().String("end", "", "window end; overrides --duration")
	availabilityCmd.Flags().Int("duration", 0, "window length in minutes")
	availabilityCmd.Flags().String("exclude", "", "job id to leave out, e.g. the job being rescheduled")
	availabilityCmd.Flags().StringSlice("employees", nil, "employee ids to check (default all)")
}
