package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/handover/internal/wire"
)

// SweepCmd returns the sweep command. Expiry is a store-layer policy layered
// on top of the escalation core; the protocol itself never expires anything.
func SweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale escalations",
		Long:  "Move escalations that have waited too long for a decision into EXPIRED and release their focus locks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := NewContext()
			hours, _ := cmd.Flags().GetInt("max-age-hours")
			school, _ := cmd.Flags().GetString("school")

			ids, err := wire.EscalationService().ExpireStale(ctx, schoolFlag(school), hours)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			if len(ids) == 0 {
				fmt.Println("Nothing to expire.")
				return nil
			}

			color.Yellow("Expired %d escalation(s):", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().Int("max-age-hours", 72, "Expire escalations untouched for this many hours")
	cmd.Flags().String("school", "", "Limit the sweep to one school")
	return cmd
}
