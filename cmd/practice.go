package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var practiceCmd = &cobra.Command{
	Use:   "practice <sub-scene-id>",
	Short: "Print a practice set as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := newService(cmd.Context(), e)
		if err != nil {
			return err
		}

		var qaIDs []string
		if only, _ := cmd.Flags().GetString("only"); only != "" {
			qaIDs = strings.Split(only, ",")
		}
		qs, err := svc.Practice(cmd.Context(), args[0], qaIDs)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"questions": qs})
	},
}

func init() {
	practiceCmd.Flags().String("only", "", "Comma separated QA ids to practice (targeted retry)")
}
