package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"meetnotes-backend/internal/audio"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(cmd.OutOrStdout())
			app := deps.App
			ok := true

			if dev, isFFmpeg := app.Capture.Device.(*audio.FFmpegDevice); isFFmpeg {
				if err := dev.CheckFFmpeg(); err != nil {
					f.SetupCheck("ffmpeg", false, err.Error())
					ok = false
				} else {
					f.SetupCheck("ffmpeg", true, "installed")
				}
			}
			if mimeType, err := audio.NegotiateMimeType(app.Capture.Device); err != nil {
				f.SetupCheck("Recording format", false, "no supported container (webm or ogg with opus)")
				ok = false
			} else {
				f.SetupCheck("Recording format", true, mimeType)
			}
			f.SetupCheck("Input device", true, fmt.Sprintf("%s %s", deps.Config.InputFormat, deps.Config.InputDevice))

			if st := app.Credentials.Status(); st.Configured {
				f.SetupCheck("OpenAI API key", true, st.Masked+" ("+st.Source+")")
			} else {
				f.SetupCheck("OpenAI API key", false, "not set. Run `meetnotes key set` or set OPENAI_API_KEY")
				ok = false
			}
			f.SetupCheck("Encryption", app.Shell.EncryptionAvailable(), encryptionDetail(app.Shell.EncryptionAvailable()))

			if app.DB != nil {
				f.SetupCheck("Storage", true, "postgres")
			} else {
				f.SetupCheck("Storage", true, "local snapshot "+deps.Config.SnapshotPath)
			}
			f.SetupCheck("Recordings", true, recordingsDetail(deps))
			f.SetupCheck("Templates", true, fmt.Sprintf("%d available", len(app.Templates.List())))

			if ok {
				f.Success("\nAll prerequisites met. Ready to record!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

func encryptionDetail(available bool) string {
	if available {
		return "API key is stored encrypted"
	}
	return "MEETNOTES_ENCRYPTION_KEY not set; API key is kept in memory only"
}

func recordingsDetail(deps *Dependencies) string {
	cfg := deps.Config
	if cfg.ObjectStoreType == "s3" {
		return "s3://" + cfg.S3Bucket + "/" + cfg.S3Prefix
	}
	return cfg.LocalStoreDir
}
