package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"meetnotes-backend/internal/meetings"
)

func NewRemindersCmd(deps *Dependencies) *cobra.Command {
	var meetingID, status string

	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "List reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := deps.App.Meetings.ListReminders(cmd.Context(), meetings.ReminderFilter{
				MeetingID: meetingID,
				Status:    status,
			})
			if err != nil {
				return err
			}
			f := NewFormatter(cmd.OutOrStdout())
			if len(list) == 0 {
				f.Info("No reminders")
				return nil
			}
			f.ReminderList(list)
			return nil
		},
	}
	cmd.Flags().StringVar(&meetingID, "meeting", "", "Only reminders of this meeting")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, sent, dismissed)")

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Send notifications for reminders that are due",
		RunE: func(cmd *cobra.Command, args []string) error {
			sent, err := deps.App.Dispatcher.CheckDue(cmd.Context())
			if err != nil {
				return err
			}
			NewFormatter(cmd.OutOrStdout()).Info(fmt.Sprintf("%d reminders sent", sent))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "complete <reminder-id>",
		Short: "Dismiss a reminder and complete its action item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := deps.App.Meetings.CompleteReminder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			NewFormatter(cmd.OutOrStdout()).Success("Completed " + r.Title)
			return nil
		},
	})

	return cmd
}
