package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ErrReported marks a failure that was already shown to the user.
var ErrReported = errors.New("lookup failed")

var (
	contextText string
	contextFile string
	serverURL   string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "wordpeek <word>",
	Short: "Explain a word in the context it appears in",
	Long: `wordpeek asks an OpenAI-compatible chat model what a word means, both in
general and in the sentence you found it in, and streams the answer.

Examples:
  wordpeek bank --context "We sat on the river bank and watched the boats."
  wordpeek ephemeral --context-file chapter3.txt
  pbpaste | wordpeek serendipity
  wordpeek serve                      # run the background daemon
  wordpeek bank --server ws://127.0.0.1:7878/lookup`,
	Args:                       cobra.ArbitraryArgs,
	RunE:                       runLookup,
	SilenceUsage:               true,
	SilenceErrors:              true,
	TraverseChildren:           true,
	SuggestionsMinimumDistance: 1,
}

func init() {
	rootCmd.Flags().StringVarP(&contextText, "context", "c", "", "Text surrounding the word")
	rootCmd.Flags().StringVar(&contextFile, "context-file", "", "Read the surrounding text from a file")
	rootCmd.Flags().StringVar(&serverURL, "server", "", "Run the lookup through a wordpeek daemon at this websocket URL")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show the prompt sent to the model and debug logs")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called from main. Interrupts cancel the
// running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
