package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the local submission queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue()
		if err != nil {
			return err
		}

		entries, err := q.Entries()
		if err != nil {
			return fmt.Errorf("read queue: %w", err)
		}

		if jsonOutput {
			out, _ := json.MarshalIndent(entries, "", "  ")
			fmt.Println(string(out))
			return nil
		}

		if len(entries) == 0 {
			fmt.Println("queue is empty")
			return nil
		}

		fmt.Printf("%d queued report(s)\n\n", len(entries))
		for _, e := range entries {
			fmt.Printf("%s  %-7s  %s  attempts=%d",
				e.Request.CreatedAt.Local().Format(time.RFC3339),
				e.Request.SubmissionState,
				e.Request.RequestID,
				e.AttemptCount,
			)
			if e.LastError != "" {
				fmt.Printf("  last_error=%q", e.LastError)
			}
			fmt.Println()
		}
		return nil
	},
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Submit due queued reports now",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		rep, err := q.ProcessQueue(ctx)
		if err != nil {
			return err
		}
		printReport(rep.Processed, rep.Remaining)
		return nil
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Reset failed reports and submit them again",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		rep, err := q.RetryFailed(ctx)
		if err != nil {
			return err
		}
		printReport(rep.Processed, rep.Remaining)
		return nil
	},
}

var queueWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the resident drainer: probe connectivity and submit queued reports as they become due",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueue()
		if err != nil {
			return err
		}

		fmt.Printf("watching queue, draining every %s while online\n", cfg.Client.DrainInterval)
		q.Run(cmd.Context(), cfg.Client.DrainInterval)
		return nil
	},
}

func printReport(processed, remaining int) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]int{
			"processed": processed,
			"remaining": remaining,
		})
		fmt.Println(string(out))
		return
	}
	fmt.Printf("submitted %d report(s), %d remaining\n", processed, remaining)
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueDrainCmd)
	queueCmd.AddCommand(queueRetryCmd)
	queueCmd.AddCommand(queueWatchCmd)
}
