package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/wordpeek/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [word]",
	Short: "Show past lookups",
	Long: `Show past lookups, most recent last.

Examples:
  wordpeek history
  wordpeek history -n 5
  wordpeek history bank     # only lookups of "bank"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var entries []history.Entry
		var err error
		if len(args) == 1 {
			entries, err = history.Find(args[0], historyLimit)
		} else {
			entries, err = history.Load(historyLimit)
		}
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No history yet.")
			return nil
		}

		cyan := color.New(color.FgCyan)
		dim := color.New(color.FgHiBlack)
		red := color.New(color.FgRed)
		green := color.New(color.FgGreen)

		for i, e := range entries {
			dim.Printf("[%s] ", e.Timestamp.Format("2006-01-02 15:04:05"))
			cyan.Printf("%s ", e.Word)
			if e.Success {
				green.Println("✓")
				fmt.Printf("  %s\n", firstLine(e.Output, 80))
			} else {
				red.Println("✗")
				red.Printf("  %s\n", e.Error)
			}
			if i < len(entries)-1 {
				fmt.Println()
			}
		}
		return nil
	},
}

// firstLine returns the first non-empty line of s, cut to limit runes.
func firstLine(s string, limit int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > limit {
			return string(r[:limit]) + "..."
		}
		return line
	}
	return ""
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of history entries to show")
}
