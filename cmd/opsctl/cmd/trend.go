package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/example/cleaning-ops/internal/email"
)

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Revenue, labour cost and profit per period",
	Long: `Print profitability buckets for an inclusive date range. With --granularity auto the
bucket size follows the range: days up to two weeks, weeks up to 45 days, months beyond.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		granularity, _ := cmd.Flags().GetString("granularity")
		if from == "" || to == "" {
			return fmt.Errorf("--from and --to are required")
		}

		trend, err := newClient().Trend(commandContext(cmd), from, to, granularity)
		if err != nil {
			return fmt.Errorf("error fetching profitability: %w", err)
		}

		cmd.Printf("Profitability by %s\n", trend.Granularity)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "PERIOD\tJOBS\tREVENUE\tLABOUR\tPROFIT\t")
		for _, p := range trend.Points {
			if p.Failed {
				fmt.Fprintf(w, "%s\t-\t-\t-\tunavailable\t\n", p.Label)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", p.Label, humanize.Comma(int64(p.Jobs)),
				email.FormatPence(p.Revenue), email.FormatPence(p.LabourCost), email.FormatPence(p.Profit))
		}
		t := trend.Totals
		fmt.Fprintf(w, "TOTAL\t%s\t%s\t%s\t%s\t\n", humanize.Comma(int64(t.Jobs)),
			email.FormatPence(t.Revenue), email.FormatPence(t.LabourCost), email.FormatPence(t.Profit))
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(trendCmd)
	trendCmd.Flags().String("from", "", "first day YYYY-MM-DD")
	trendCmd.Flags().String("to", "", "last day YYYY-MM-DD, inclusive")
	trendCmd.Flags().String("granularity", "auto", "auto, day, week or month")
}
