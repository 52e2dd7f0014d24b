package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/handover/internal/cli"
	"github.com/example/handover/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "handover",
		Short:   "handover - escalation and resumption for conversational agents",
		Version: version.String(),
		Long: `handover manages the escalate-decide-resume loop for conversational agents.
When an agent pauses on something it cannot decide, handover tracks the
escalation, routes it to a human authority, records the decision, and resumes
the origin agent so it can reply to the original requester.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.DetectAndStoreAuthority()
		},
	}

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.EscalationCmd())
	rootCmd.AddCommand(cli.FocusCmd())
	rootCmd.AddCommand(cli.AuditCmd())
	rootCmd.AddCommand(cli.SweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
