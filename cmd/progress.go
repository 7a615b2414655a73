package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuxiji/scenetalk/internal/progress"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Inspect or reset saved sub-scene progress",
}

var progressListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sub-scenes with saved progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		entries, err := e.store.Progress().List(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved progress.")
			return nil
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-24s  %-9s  %-7s  %s\n", "Sub-scene", "Stage", "Score", "Updated")
		fmt.Fprintln(out, strings.Repeat("─", 64))
		for _, en := range entries {
			snap, err := progress.LoadSnapshot(ctx, e.store.Progress(), en.SubSceneID, e.log)
			if err != nil {
				return err
			}
			stage, score := "?", "-"
			if snap != nil {
				stage = string(snap.Stage)
				if snap.FluencyScore != nil {
					score = fmt.Sprintf("%d", *snap.FluencyScore)
				}
			}
			fmt.Fprintf(out, "%-24s  %-9s  %-7s  %s\n",
				truncate(en.SubSceneID, 24), stage, score, en.UpdatedAt.Local().Format(timeLayout))
		}
		return nil
	},
}

var progressShowCmd = &cobra.Command{
	Use:   "show <sub-scene-id>",
	Short: "Print the saved snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		raw, err := e.store.Progress().Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if raw == nil {
			return fmt.Errorf("no progress saved for %s", args[0])
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decode progress: %w", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	},
}

var progressResetCmd = &cobra.Command{
	Use:   "reset <sub-scene-id>",
	Short: "Delete the saved snapshot of a sub-scene",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := progress.Reset(cmd.Context(), e.store.Progress(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Progress for %s cleared.\n", args[0])
		return nil
	},
}

var progressTurnsCmd = &cobra.Command{
	Use:   "turns <sub-scene-id>",
	Short: "Show the recorded turns of the last dialogue run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		snap, err := progress.LoadSnapshot(ctx, e.store.Progress(), args[0], e.log)
		if err != nil {
			return err
		}
		if snap == nil || snap.RunID == "" {
			return fmt.Errorf("no dialogue run saved for %s", args[0])
		}
		turns, err := e.store.Events().Turns(ctx, snap.RunID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s\n", snap.RunID)
		fmt.Fprintln(out, strings.Repeat("─", 64))
		for _, t := range turns {
			sym := mark(t.Passed)
			if t.Skipped {
				sym = "»"
			}
			fmt.Fprintf(out, "%s %-10s #%d  %s\n", sym, truncate(t.QAID, 10), t.Attempt, t.UserMessage)
			if t.Reason != "" {
				fmt.Fprintf(out, "    %s\n", t.Reason)
			}
		}
		return nil
	},
}

func init() {
	progressCmd.AddCommand(progressListCmd)
	progressCmd.AddCommand(progressShowCmd)
	progressCmd.AddCommand(progressResetCmd)
	progressCmd.AddCommand(progressTurnsCmd)
}
