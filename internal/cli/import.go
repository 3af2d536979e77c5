package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"meetnotes-backend/internal/session"
	"meetnotes-backend/internal/templates"
)

func NewImportCmd(deps *Dependencies) *cobra.Command {
	var templateID, title string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a meeting from an existing recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(cmd.OutOrStdout())

			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			info, err := file.Stat()
			if err != nil {
				return err
			}

			f.Processing()
			out, err := deps.App.Sessions.Import(cmd.Context(), session.ImportRequest{
				FileName:   filepath.Base(args[0]),
				TemplateID: templateID,
				Title:      title,
				StartTime:  info.ModTime(),
				Data:       file,
			})
			if err != nil {
				return err
			}
			f.Outcome(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", templates.DefaultID, "Meeting template id")
	cmd.Flags().StringVar(&title, "title", "", "Meeting title (defaults to template and file name)")

	return cmd
}
