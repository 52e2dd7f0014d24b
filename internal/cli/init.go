package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/handover/internal/config"
	"github.com/example/handover/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the handover database and operator config",
		Long:  `Initialize the handover database at ~/.handover/handover.db and write .handover/config.json in the current directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := db.GetDBPath()
			if err != nil {
				return fmt.Errorf("failed to get database path: %w", err)
			}

			fmt.Printf("Initializing handover database at %s\n", dbPath)

			if err := db.InitSchema(); err != nil {
				return fmt.Errorf("failed to initialize schema: %w", err)
			}

			fmt.Println("✓ Database initialized successfully")

			school, _ := cmd.Flags().GetString("school")
			authority, _ := cmd.Flags().GetString("authority")
			if school != "" || authority != "" {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get working directory: %w", err)
				}
				if err := config.SaveConfig(cwd, &config.Config{
					Version:           "1",
					SchoolID:          school,
					AuthorityIdentity: authority,
				}); err != nil {
					return err
				}
				fmt.Println("✓ Operator config written to .handover/config.json")
			}

			return nil
		},
	}

	cmd.Flags().String("school", "", "Default school (tenant) ID for this operator")
	cmd.Flags().String("authority", "", "Authority identity stamped on resolutions")
	return cmd
}
