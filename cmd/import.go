package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuxiji/scenetalk/internal/content"
	"github.com/yuxiji/scenetalk/internal/store"
)

var _ content.Writer = (*store.SceneRepo)(nil)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load sub-scenes and QA pairs from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := content.LoadFile(args[0])
		if err != nil {
			return err
		}

		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		sum, err := content.Import(cmd.Context(), e.store.Scenes(), f)
		if err != nil {
			return fmt.Errorf("import %s: %w", args[0], err)
		}
		e.log.WithField("file", args[0]).Info("content imported")
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sub-scene(s), %d QA pair(s).\n", sum.SubScenes, sum.QAPairs)
		return nil
	},
}
