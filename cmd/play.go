package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yuxiji/scenetalk/internal/app"
	"github.com/yuxiji/scenetalk/internal/store"
)

var playCmd = &cobra.Command{
	Use:   "play [sub-scene-id]",
	Short: "Practice scenes in the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var id string
		if len(args) == 1 {
			id = args[0]
		}
		return runPlay(cmd, id)
	},
}

// runPlay launches the TUI. Logs go to scenetalk.log in the data directory
// since stderr belongs to the screen.
func runPlay(cmd *cobra.Command, subSceneID string) error {
	logPath, err := logFilePath()
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	e, err := setup(cmd, logFile)
	if err != nil {
		return err
	}
	defer e.Close()

	svc, err := newService(cmd.Context(), e)
	if err != nil {
		return err
	}
	e.log.WithField("sub_scene_id", subSceneID).Info("starting terminal UI")
	return app.Run(app.Options{Service: svc, SubSceneID: subSceneID, Log: e.log})
}

func logFilePath() (string, error) {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		return "", fmt.Errorf("resolve data dir: %w", err)
	}
	return filepath.Join(filepath.Dir(dbPath), "scenetalk.log"), nil
}
