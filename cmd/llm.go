package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yuxiji/scenetalk/internal/llm"
	"github.com/yuxiji/scenetalk/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded model calls",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		subScene, _ := cmd.Flags().GetString("sub-scene")

		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.store.Events().LLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, Purpose: purpose, SubSceneID: subScene})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No model calls recorded.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTime\tPurpose\tSub-scene\tModel\tIn\tOut\tMs\tOK")
		for _, ev := range events {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				ev.ID, ev.Timestamp.Local().Format(timeLayout), ev.Purpose,
				orDash(truncate(ev.SubSceneID, 18)), truncate(ev.Model, 26),
				ev.InputTokens, ev.OutputTokens, ev.LatencyMs, mark(ev.Success))
		}
		return tw.Flush()
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q", args[0])
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		ev, err := e.store.Events().LLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if ev == nil {
			return fmt.Errorf("event %d not found", id)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(ev)
		}
		printEvent(out, ev)
		return nil
	},
}

func printEvent(out io.Writer, ev *store.LLMEvent) {
	tw := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", ev.ID)
	fmt.Fprintf(tw, "Time:\t%s\n", ev.Timestamp.Local().Format(timeLayout))
	fmt.Fprintf(tw, "Provider:\t%s (%s)\n", ev.Provider, ev.Model)
	fmt.Fprintf(tw, "Purpose:\t%s\n", ev.Purpose)
	if ev.SubSceneID != "" {
		fmt.Fprintf(tw, "Sub-scene:\t%s\n", ev.SubSceneID)
	}
	fmt.Fprintf(tw, "Tokens:\t%d in / %d out\n", ev.InputTokens, ev.OutputTokens)
	fmt.Fprintf(tw, "Latency:\t%dms\n", ev.LatencyMs)
	fmt.Fprintf(tw, "Success:\t%s\n", mark(ev.Success))
	if ev.ErrorMessage != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", ev.ErrorMessage)
	}
	tw.Flush()

	section := func(title, body string) {
		rule := strings.Repeat("─", 60)
		fmt.Fprintf(out, "\n%s\n%s\n%s\n", rule, title, rule)
		if body == "" {
			body = "(not captured)"
		}
		fmt.Fprintln(out, body)
	}
	section("REQUEST", ev.RequestBody)
	section("RESPONSE", ev.ResponseBody)
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage by purpose and estimated cost by model",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd, os.Stderr)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		byPurpose, err := e.store.Events().LLMUsage(ctx, "purpose", store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(out, "No model calls recorded.")
			return nil
		}
		byModel, err := e.store.Events().LLMUsage(ctx, "model", store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}

		printUsage(out, byPurpose)
		fmt.Fprintln(out)
		printCost(out, byModel)
		return nil
	},
}

func printUsage(out io.Writer, usage []store.LLMUsage) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Purpose\tCalls\tFailed\tInput\tOutput\tAvg ms\t")
	var total store.LLMUsage
	for _, u := range usage {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%.0f\t\n", u.Key, u.Calls, u.Failures, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
		total.Calls += u.Calls
		total.Failures += u.Failures
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%d\t\t\n", total.Calls, total.Failures, total.InputTokens, total.OutputTokens)
	tw.Flush()
}

func printCost(out io.Writer, usage []store.LLMUsage) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Model\tCalls\tInput\tOutput\tCost (USD)\t")

	var total float64
	var unpriced []string
	for _, u := range usage {
		cost := "?"
		if price := llm.LookupCost(u.Key); price != nil {
			c := price.Cost(u.InputTokens, u.OutputTokens)
			total += c
			cost = formatCost(c)
		} else {
			unpriced = append(unpriced, u.Key)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t\n", truncate(u.Key, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
	}
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(tw, "%s\t\t\t\t%s\t\n", label, formatCost(total))
	tw.Flush()

	if len(unpriced) > 0 {
		fmt.Fprintf(out, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by purpose (dialogue-judge, review-critique)")
	llmListCmd.Flags().String("sub-scene", "", "Filter by sub-scene id")
	llmViewCmd.Flags().Bool("json", false, "Print the event as JSON")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
