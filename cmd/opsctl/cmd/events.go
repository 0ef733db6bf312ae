package cmd

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/cleaning-ops/internal/events"
)

var errEnoughEvents = errors.New("event count reached")

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Follow job changes as they happen",
	Long: `Stream job change events from the server. Events can be dropped for slow
listeners, so the calendar is also re-read every poll interval and whenever
the stream reconnects.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := location()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("count")
		view, _ := cmd.Flags().GetString("view")
		poll := viper.GetDuration("event_poll_interval")
		if flagPoll, _ := cmd.Flags().GetDuration("poll"); cmd.Flags().Changed("poll") || poll <= 0 {
			poll = flagPoll
		}
		if poll <= 0 {
			poll = 10 * time.Second
		}

		ctx, cancel := context.WithCancel(commandContext(cmd))
		var wg sync.WaitGroup
		defer func() {
			cancel()
			wg.Wait()
		}()
		api := newClient()

		// the poll goroutine and the stream share the output
		var mu sync.Mutex
		printf := func(format string, a ...any) {
			mu.Lock()
			defer mu.Unlock()
			cmd.Printf(format, a...)
		}

		refresh := func() {
			grid, err := api.CalendarView(ctx, view, "")
			if err != nil {
				if ctx.Err() == nil {
					printf("Calendar refresh failed: %v\n", err)
				}
				return
			}
			jobs := 0
			for _, day := range grid.Days {
				jobs += len(day.Jobs)
			}
			printf("%s calendar %s to %s: %d jobs\n", time.Now().In(loc).Format("15:04:05"), grid.First, grid.Last, jobs)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(poll)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					refresh()
				}
			}
		}()

		seen := 0
		for {
			refresh()
			err := api.StreamEvents(ctx, func(evt events.JobsChanged) error {
				printf("%s %s %s\n", evt.OccurredAt.In(loc).Format("15:04:05"), evt.Kind, strings.Join(evt.JobIDs, ", "))
				seen++
				if limit > 0 && seen >= limit {
					return errEnoughEvents
				}
				return nil
			})
			switch {
			case errors.Is(err, errEnoughEvents):
				return nil
			case ctx.Err() != nil:
				return nil
			case err != nil:
				printf("Event stream interrupted: %v\n", err)
			default:
				printf("Event stream closed by server\n")
			}

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(poll):
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().Int("count", 0, "exit after this many events (default: follow forever)")
	eventsCmd.Flags().String("view", "week", "calendar view re-read on each poll")
	eventsCmd.Flags().Duration("poll", 10*time.Second, "calendar re-read interval")
}
