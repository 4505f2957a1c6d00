package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"artlens/config"
	"artlens/core/playback"
	"artlens/db"
	"artlens/logger"
	"artlens/repository"

	"github.com/spf13/cobra"
)

var listenAnswers bool

var listenCmd = &cobra.Command{
	Use:   "listen <scanID>",
	Short: "Play a stored narration on the local speaker",
	Long: `Play the narration of a scan through the local audio device. With --answers
the spoken chat answers follow, oldest first. Ctrl-C stops playback.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		initLogger(cfg)
		defer logger.Sync()

		if err := db.ConnectGormDB(cfg); err != nil {
			return err
		}
		defer db.CloseGormDB()

		tracks, err := listenTracks(cmd, args[0])
		if err != nil {
			return err
		}
		return playTracks(cmd, cfg, tracks)
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().BoolVarP(&listenAnswers, "answers", "a", false, "also play narrated chat answers")
}

func listenTracks(cmd *cobra.Command, scanID string) ([]playback.Track, error) {
	ctx := cmd.Context()
	scan, err := repository.NewGormScanRepository(db.GormDB).GetByID(ctx, scanID)
	if err != nil {
		return nil, err
	}

	var tracks []playback.Track
	if scan.AudioURL != nil {
		tracks = append(tracks, playback.DescriptionTrack(scan.ID, *scan.AudioURL, scan.Title))
	}
	if listenAnswers {
		msgs, err := repository.NewGormChatRepository(db.GormDB).ListByScan(ctx, scan.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if m.AudioURL != nil {
				tracks = append(tracks, playback.ResponseTrack(m.ID, *m.AudioURL, m.Message, m.CreatedAt))
			}
		}
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("scan %s has no narration yet", scanID)
	}
	return tracks, nil
}

func playTracks(cmd *cobra.Command, cfg *config.Config, tracks []playback.Track) error {
	out := cmd.OutOrStdout()
	finished := make(chan playback.State, 1)

	session := playback.NewSession(playback.NewSpeakerLoader(nil), playback.Options{
		LoadTimeout:      cfg.PlayerLoadTimeout,
		ProgressInterval: cfg.PlayerProgressInterval,
		Name:             "speaker",
		OnChange: func(st playback.State) {
			switch st.Status {
			case playback.StatusPlaying:
				fmt.Fprintf(out, "\r%5.1fs / %5.1fs", st.Progress.Seconds(), st.Duration.Seconds())
			case playback.StatusEnded, playback.StatusErrored:
				select {
				case finished <- st:
				default:
				}
			}
		},
	})
	defer session.Cleanup()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	for _, track := range tracks {
		fmt.Fprintf(out, "Playing %s\n", track.Title)
		session.Play(cmd.Context(), track)

		select {
		case st := <-finished:
			fmt.Fprintln(out)
			if st.Status == playback.StatusErrored {
				return errors.New("playback failed, see the log for details")
			}
		case <-stop:
			session.Stop()
			fmt.Fprintln(out, "\nStopped.")
			return nil
		}
	}
	return nil
}
