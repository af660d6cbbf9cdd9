package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/queue"
)

var (
	reportSpecies     string
	reportDescription string
	reportLat         float64
	reportLng         float64
	reportContact     string
	reportPhone       string
	reportOffline     bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a pet emergency",
	Long: `Report a pet emergency at a location.

The report is written to the local queue first and assigned a stable
request ID. If the server is reachable it is submitted immediately;
otherwise it stays queued and drains on the next successful probe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &domain.EmergencyRequest{
			RequestID: uuid.New().String(),
			CreatedAt: time.Now().UTC(),
			Payload: domain.EmergencyPayload{
				Species:      reportSpecies,
				Description:  reportDescription,
				Latitude:     reportLat,
				Longitude:    reportLng,
				ContactName:  reportContact,
				ContactPhone: reportPhone,
			},
		}
		if err := req.Validate(); err != nil {
			return err
		}

		q, err := openQueue()
		if err != nil {
			return err
		}

		entry, err := q.Enqueue(req)
		if err != nil {
			return fmt.Errorf("queue report: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		var rep queueReport
		rep.RequestID = entry.Request.RequestID
		if reportOffline {
			rep.State = string(domain.SubmissionStatePending)
		} else {
			if _, err := q.ProcessQueue(ctx); err != nil {
				return fmt.Errorf("drain queue: %w", err)
			}
			rep.State = stateOf(q, entry.Request.RequestID)
		}

		if jsonOutput {
			out, _ := json.MarshalIndent(rep, "", "  ")
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("report %s\n", rep.RequestID)
		switch rep.State {
		case string(domain.SubmissionStateAcknowledged):
			fmt.Println("submitted and acknowledged by the server")
		case string(domain.SubmissionStateFailed):
			fmt.Println("submission failed; run 'pawctl queue retry' to try again")
		default:
			fmt.Println("queued locally; will submit when the server is reachable")
		}
		return nil
	},
}

type queueReport struct {
	RequestID string `json:"request_id"`
	State     string `json:"state"`
}

// stateOf looks the entry up again after a drain pass. An entry removed from
// the queue was acknowledged.
func stateOf(q *queue.OfflineQueue, requestID string) string {
	entries, err := q.Entries()
	if err != nil {
		return string(domain.SubmissionStatePending)
	}
	for _, e := range entries {
		if e.Request.RequestID == requestID {
			return string(e.Request.SubmissionState)
		}
	}
	return string(domain.SubmissionStateAcknowledged)
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportSpecies, "species", "", "animal species (required)")
	reportCmd.Flags().StringVar(&reportDescription, "description", "", "what happened")
	reportCmd.Flags().Float64Var(&reportLat, "lat", 0, "latitude of the emergency")
	reportCmd.Flags().Float64Var(&reportLng, "lng", 0, "longitude of the emergency")
	reportCmd.Flags().StringVar(&reportContact, "contact", "", "reporter name")
	reportCmd.Flags().StringVar(&reportPhone, "phone", "", "reporter phone (required)")
	reportCmd.Flags().BoolVar(&reportOffline, "offline", false, "queue only, skip the immediate submit")
}
