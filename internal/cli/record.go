package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meetnotes-backend/internal/audio"
	"meetnotes-backend/internal/live"
	"meetnotes-backend/internal/templates"
)

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var templateID string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a meeting from the microphone",
		Long:  "Record from the configured input device until Ctrl+C (or --duration), then transcribe and generate notes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(cmd.OutOrStdout())
			mgr := deps.App.Sessions

			tmpl, err := deps.App.Templates.Get(templateID)
			if err != nil {
				return err
			}

			s, err := mgr.Begin()
			if err != nil {
				return err
			}

			events, unsubscribe := deps.App.Hub.Subscribe(32)
			defer unsubscribe()
			go func() {
				for e := range events {
					if e.Type == live.EventChunk {
						f.LiveText(e.Text)
					}
				}
			}()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := s.SelectTemplate(ctx, tmpl.ID); err != nil {
				if errors.Is(err, audio.ErrPermissionDenied) {
					_ = s.Cancel(ctx)
					return errors.New("microphone access was denied; grant access and run again")
				}
				return err
			}
			f.RecordingStarted(tmpl.Name, s.MeetingID())
			started := time.Now()

			waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, duration)
				defer cancel()
			}
			<-waitCtx.Done()
			stop()

			f.RecordingStopped(time.Since(started))
			f.Processing()
			out, err := s.Stop(context.WithoutCancel(ctx))
			if err != nil {
				return err
			}
			f.Outcome(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", templates.DefaultID, "Meeting template id")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Stop automatically after this long")

	return cmd
}
