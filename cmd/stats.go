package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/wordpeek/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and response times",
	Long: `Display a dashboard of your lookups: counts, success rate, time to the
first streamed chunk, total time, response modes, and most looked-up words.

Data is collected automatically and stored locally in ~/.wordpeek/stats.json.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := stats.Summarize()
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}

		cyan := color.New(color.FgCyan, color.Bold)
		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)

		cyan.Fprintf(os.Stderr, "\n  📊 wordpeek stats\n\n")

		if summary.TotalLookups == 0 {
			dim.Fprintln(os.Stderr, "  No data yet. Look up a few words and come back.")
			fmt.Fprintln(os.Stderr)
			return nil
		}

		green.Fprintf(os.Stderr, "  Lookups:     ")
		fmt.Fprintf(os.Stderr, "%d total", summary.TotalLookups)
		dim.Fprintf(os.Stderr, "  (%d today, %d this week)\n", summary.TodayCount, summary.ThisWeekCount)

		green.Fprintf(os.Stderr, "  Success:     ")
		if summary.SuccessRate >= 90 {
			fmt.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		} else {
			yellow.Fprintf(os.Stderr, "%.0f%%\n", summary.SuccessRate)
		}

		green.Fprintf(os.Stderr, "  First chunk: ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgFirstChunkMs)
		green.Fprintf(os.Stderr, "  Total time:  ")
		fmt.Fprintf(os.Stderr, "%dms avg\n", summary.AvgElapsedMs)
		if summary.AvgPromptTokens > 0 {
			green.Fprintf(os.Stderr, "  Prompt:      ")
			fmt.Fprintf(os.Stderr, "~%d tokens avg\n", summary.AvgPromptTokens)
		}

		printBreakdown := func(title string, counts map[string]int) {
			if len(counts) == 0 {
				return
			}
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  "+title)
			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				pct := float64(counts[k]) / float64(summary.TotalLookups) * 100
				bar := strings.Repeat("█", int(pct/5))
				dim.Fprintf(os.Stderr, "  %-10s ", k)
				fmt.Fprintf(os.Stderr, "%s %d (%.0f%%)\n", bar, counts[k], pct)
			}
		}
		printBreakdown("Response Mode", summary.ModeBreakdown)
		printBreakdown("Source", summary.SourceBreakdown)

		if len(summary.TopWords) > 0 {
			fmt.Fprintln(os.Stderr)
			cyan.Fprintln(os.Stderr, "  Top Words")
			for i, tw := range summary.TopWords {
				dim.Fprintf(os.Stderr, "  %d. ", i+1)
				fmt.Fprintf(os.Stderr, "%s ", tw.Word)
				dim.Fprintf(os.Stderr, "(%dx)\n", tw.Count)
			}
		}

		fmt.Fprintln(os.Stderr)
		return nil
	},
}
