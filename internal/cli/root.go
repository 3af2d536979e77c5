// Package cli implements the meetnotes command line.
package cli

import (
	"github.com/spf13/cobra"

	"meetnotes-backend/internal/bootstrap"
	"meetnotes-backend/internal/shared/config"
)

// Dependencies are shared by all commands.
type Dependencies struct {
	App    *bootstrap.App
	Config config.Config
}

// NewRootCmd builds the command tree.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meetnotes",
		Short:         "Record meetings and turn them into notes, action items and reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewImportCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewShowCmd(deps))
	rootCmd.AddCommand(NewDeleteCmd(deps))
	rootCmd.AddCommand(NewReprocessCmd(deps))
	rootCmd.AddCommand(NewTemplatesCmd(deps))
	rootCmd.AddCommand(NewRemindersCmd(deps))
	rootCmd.AddCommand(NewKeyCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
