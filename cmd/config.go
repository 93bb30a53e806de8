package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/wordpeek/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage wordpeek configuration",
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := config.Init()
		if err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		if !created {
			fmt.Printf("Config already exists in %s.\n", config.Dir())
			return nil
		}
		fmt.Printf("Default config written to %s.\n", config.Dir())
		fmt.Println("Next: wordpeek config set-key <api-key>")
		return nil
	},
}

// setter describes one "config set-*" command.
type setter struct {
	use, key, short, done string
}

var setters = []setter{
	{"set-key <api-key>", "api-key", "Set the API key", "API key saved successfully."},
	{"set-model <model-name>", "model", "Set the chat model (default: " + config.DefaultModel + ")", "Model set to %s."},
	{"set-url <api-url>", "api-url", "Set the chat completions endpoint", "API URL set to %s."},
	{"set-prompt <template>", "prompt", "Set the prompt template (%word% and %context% are substituted)", "Prompt template updated."},
	{"set-context-range <paragraph|sentence|fixed>", "context-range", "Set how much surrounding text is sent", "Context range set to %s."},
	{"set-context-length <n>", "context-length", "Set the window size for the fixed context range", "Context length set to %s."},
}

func newSetCmd(s setter) *cobra.Command {
	return &cobra.Command{
		Use:   s.use,
		Short: s.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(s.key, args[0]); err != nil {
				return fmt.Errorf("failed to save %s: %w", s.key, err)
			}
			if strings.Contains(s.done, "%s") {
				fmt.Printf(s.done+"\n", args[0])
			} else {
				fmt.Println(s.done)
			}
			return nil
		},
	}
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dim := color.New(color.FgHiBlack)
		fmt.Printf("API URL:        %s\n", cfg.APIURL)
		fmt.Printf("API Key:        %s\n", config.MaskKey(cfg.APIKey))
		fmt.Printf("Model:          %s\n", cfg.Model)
		fmt.Printf("Context Range:  %s\n", cfg.ContextRange)
		fmt.Printf("Context Length: %d\n", cfg.ContextLength)
		fmt.Printf("Prompt:         %s\n", cfg.SystemPrompt)
		if cfg.LogLevel != "" {
			fmt.Printf("Log Level:      %s\n", cfg.LogLevel)
		}
		fmt.Printf("Config Dir:     %s\n", config.Dir())
		if !config.Exists() {
			dim.Println("(no config file yet; showing defaults and overrides)")
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(initCmd)
	for _, s := range setters {
		configCmd.AddCommand(newSetCmd(s))
	}
	configCmd.AddCommand(showCmd)
}
