package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/handover/internal/wire"
)

var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Manage authority focus locks",
	Long:  "Inspect and release the per-authority focus lock that routes free-text replies",
}

var focusShowCmd = &cobra.Command{
	Use:   "show [authority-identity]",
	Short: "Show which escalation an authority's next reply resolves",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		authority := GetAuthority()
		if len(args) == 1 {
			authority = args[0]
		}
		if authority == "" {
			return fmt.Errorf("authority identity required (argument or .handover/config.json)")
		}

		escalationID, err := wire.FocusService().Resolve(ctx, authority)
		if err != nil {
			return fmt.Errorf("failed to resolve focus: %w", err)
		}

		if escalationID == "" {
			fmt.Printf("No active focus for %s\n", authority)
			return nil
		}
		fmt.Printf("%s is focused on %s\n", authority, escalationID)
		return nil
	},
}

var focusReleaseCmd = &cobra.Command{
	Use:   "release [authority-identity]",
	Short: "Release an authority's focus lock",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := NewContext()
		authority := GetAuthority()
		if len(args) == 1 {
			authority = args[0]
		}
		if authority == "" {
			return fmt.Errorf("authority identity required (argument or .handover/config.json)")
		}

		if err := wire.FocusService().Release(ctx, authority); err != nil {
			return fmt.Errorf("failed to release focus: %w", err)
		}

		fmt.Printf("✓ Focus released for %s\n", authority)
		return nil
	},
}

func init() {
	focusCmd.AddCommand(focusShowCmd)
	focusCmd.AddCommand(focusReleaseCmd)
}

// FocusCmd returns the focus command
func FocusCmd() *cobra.Command {
	return focusCmd
}
