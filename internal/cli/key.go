package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func NewKeyCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Show the OpenAI API key status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := deps.App.Credentials.Status()
			f := NewFormatter(cmd.OutOrStdout())
			if !st.Configured {
				f.Warning("No OpenAI API key configured")
				return nil
			}
			f.Info("OpenAI API key " + st.Masked + " (" + st.Source + ")")
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <api-key>",
		Short: "Store the OpenAI API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.App.Credentials.Set(strings.TrimSpace(args[0])); err != nil {
				return err
			}
			f := NewFormatter(cmd.OutOrStdout())
			if st := deps.App.Credentials.Status(); !st.Persisted {
				f.Warning("Encryption is unavailable; the key is kept for this process only. Set MEETNOTES_ENCRYPTION_KEY to persist it.")
				return nil
			}
			f.Success("API key stored")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored OpenAI API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := deps.App.Credentials.Clear(); err != nil {
				return err
			}
			NewFormatter(cmd.OutOrStdout()).Success("API key removed")
			return nil
		},
	})

	return cmd
}
