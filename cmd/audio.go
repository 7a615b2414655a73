package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuxiji/scenetalk/internal/audio"
)

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Render and upload prompt audio for QA pairs that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		if !e.cfg.Audio.Enabled() {
			return fmt.Errorf("audio.bucket is not configured")
		}
		ctx := cmd.Context()

		pairs, err := e.store.Scenes().QAPairsMissingAudio(ctx)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Every QA pair already has audio.")
			return nil
		}

		speaker, err := audio.NewGoogleSpeaker(ctx, e.cfg.Audio)
		if err != nil {
			return err
		}
		defer speaker.Close()

		client, err := audio.NewS3Client(ctx, e.cfg.Audio)
		if err != nil {
			return err
		}

		workers, _ := cmd.Flags().GetInt("workers")
		pause, _ := cmd.Flags().GetDuration("pause")
		synth := audio.NewSynthesizer(speaker, client, e.store.Scenes(), e.cfg.Audio.Bucket, e.log)
		synth.Pause = pause

		report := synth.SynthesizeAll(ctx, pairs, workers)
		fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d of %d QA pair(s).\n", len(report.Done), len(pairs))
		if len(report.Failed) == 0 {
			return nil
		}

		ids := make([]string, 0, len(report.Failed))
		for id := range report.Failed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %v\n", id, report.Failed[id])
		}
		return fmt.Errorf("%d QA pair(s) failed", len(report.Failed))
	},
}

func init() {
	audioCmd.Flags().IntP("workers", "w", 4, "Concurrent synthesis workers")
	audioCmd.Flags().Duration("pause", 200*time.Millisecond, "Pause per worker between pairs")
}
