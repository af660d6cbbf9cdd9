package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okanlawon/pawdispatch/internal/gateway"
)

var statusCmd = &cobra.Command{
	Use:   "status <request-id>",
	Short: "Show the dispatch outcome for a submitted report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw := gateway.New(cfg.Client.ServerURL, 15*time.Second)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		result, err := gw.GetDispatch(ctx, args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("request   %s\n", result.RequestID)
		fmt.Printf("status    %s\n", result.OverallStatus)
		fmt.Printf("clinics   %d matched\n", result.MatchedClinicCount)
		if result.NoCandidates {
			fmt.Println("no clinics were found near the reported location")
			return nil
		}
		fmt.Println()
		for _, a := range result.Attempts {
			line := fmt.Sprintf("%-20s %-10s %s", a.ClinicID, a.Channel, a.Outcome)
			if a.Simulated {
				line += " (simulated)"
			}
			if a.Error != "" {
				line += fmt.Sprintf("  %s", a.Error)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
