package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/handover/internal/wire"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list [escalation-id]",
	Short: "List audit events for an escalation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		school, _ := cmd.Flags().GetString("school")

		events, err := wire.AuditService().ListEvents(ctx, args[0], schoolFlag(school))
		if err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No audit events found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tEVENT\tDETAIL")
		fmt.Fprintln(w, "----\t-----\t------")
		for _, e := range events {
			detail := e.Detail
			if detail == "" {
				detail = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.CreatedAt, e.EventType, detail)
		}
		w.Flush()
		return nil
	},
}

func init() {
	auditListCmd.Flags().String("school", "", "School (tenant) ID")
	auditCmd.AddCommand(auditListCmd)
}

// AuditCmd returns the audit command
func AuditCmd() *cobra.Command {
	return auditCmd
}
