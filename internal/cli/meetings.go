package cli

import (
	"github.com/spf13/cobra"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded meetings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := deps.App.Meetings.List(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}
			NewFormatter(cmd.OutOrStdout()).MeetingList(list)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum meetings to show")

	return cmd
}

func NewShowCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show a meeting with its notes, action items and reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := deps.App.Meetings.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			NewFormatter(cmd.OutOrStdout()).Details(details)
			return nil
		},
	}
}

func NewDeleteCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <meeting-id>",
		Short: "Delete a meeting and everything generated from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.App.Meetings.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			NewFormatter(cmd.OutOrStdout()).Success("Deleted " + args[0])
			return nil
		},
	}
}

func NewReprocessCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess <meeting-id>",
		Short: "Transcribe and enhance a meeting again from its retained recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(cmd.OutOrStdout())
			f.Processing()
			out, err := deps.App.Sessions.Reprocess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f.Outcome(out)
			return nil
		},
	}
}

func NewTemplatesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List meeting templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			NewFormatter(cmd.OutOrStdout()).TemplateList(deps.App.Templates.List())
			return nil
		},
	}
}
