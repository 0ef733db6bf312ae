package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Review job verification photos",
}

var photosVerifyCmd = &cobra.Command{
	Use:   "verify [photo_id...]",
	Short: "Mark photos as verified",
	Long:  `Verify one photo, or several at once. Several ids are updated together: either all change or none do.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewPhotos(cmd, args, "verified", "")
	},
}

var photosRejectCmd = &cobra.Command{
	Use:   "reject [photo_id...]",
	Short: "Reject photos with a reason",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		if reason == "" {
			return fmt.Errorf("--reason is required when rejecting")
		}
		return reviewPhotos(cmd, args, "rejected", reason)
	},
}

var photosShowCmd = &cobra.Command{
	Use:   "show [job_id]",
	Short: "Show the verification score and photos of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := newClient().Verification(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("error fetching verification: %w", err)
		}
		s := result.Summary
		cmd.Printf("Job %s: score %d%% (%d verified, %d rejected, %d pending of %d)\n",
			args[0], s.Score, s.Verified, s.Rejected, s.Pending, s.Total)

		if len(result.Photos) == 0 {
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tFILE\tSTATUS\tACCURACY\tREASON")
		for _, p := range result.Photos {
			reason := "-"
			if p.RejectionReason != nil {
				reason = *p.RejectionReason
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Filename, p.Status, p.AccuracyBand, reason)
		}
		return w.Flush()
	},
}

func reviewPhotos(cmd *cobra.Command, args []string, status, reason string) error {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid photo id %q", arg)
		}
		ids = append(ids, id)
	}

	api := newClient()
	ctx := commandContext(cmd)
	if len(ids) == 1 {
		photo, err := api.ReviewPhoto(ctx, ids[0], status, reason)
		if err != nil {
			return fmt.Errorf("error reviewing photo: %w", err)
		}
		cmd.Printf("Photo %d is now %s\n", photo.ID, photo.Status)
		return nil
	}

	result, err := api.BulkReview(ctx, ids, status, reason)
	if err != nil {
		return fmt.Errorf("error reviewing photos: %w", err)
	}
	cmd.Printf("%d photos are now %s\n", result.Updated, result.Status)
	return nil
}

func init() {
	rootCmd.AddCommand(photosCmd)
	photosCmd.AddCommand(photosVerifyCmd, photosRejectCmd, photosShowCmd)
	photosRejectCmd.Flags().String("reason", "", "why the photos were rejected")
}
