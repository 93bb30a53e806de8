package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/wordpeek/internal/ai"
	"github.com/arin/wordpeek/internal/config"
	"github.com/arin/wordpeek/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and test the API connection",
	Long: `Run a health check on your wordpeek setup.
Verifies the config file, API key and endpoint, sends a short test request
to the model, and checks whether the daemon is reachable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 wordpeek doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			if err != nil {
				if strings.HasPrefix(err.Error(), "warn:") {
					yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", strings.TrimPrefix(err.Error(), "warn:"))
					warn++
				} else {
					red.Fprintf(os.Stderr, "  ✗ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", err.Error())
					fail++
				}
			} else {
				green.Fprintf(os.Stderr, "  ✓ %s", name)
				if detail != "" {
					dim.Fprintf(os.Stderr, " (%s)", detail)
				}
				fmt.Fprintln(os.Stderr)
				pass++
			}
		}

		cfg, cfgErr := config.Store{}.Get()

		check("Config file", func() (string, error) {
			if cfgErr != nil {
				return "", cfgErr
			}
			if !config.Exists() {
				return "", fmt.Errorf("warn:no config file, using defaults (run: wordpeek config init)")
			}
			return config.Dir(), nil
		})

		check("API key", func() (string, error) {
			if strings.TrimSpace(cfg.APIKey) == "" {
				return "", fmt.Errorf("not set, run: wordpeek config set-key <api-key>")
			}
			return config.MaskKey(cfg.APIKey), nil
		})

		check("API URL", func() (string, error) {
			u, err := url.Parse(cfg.APIURL)
			if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
				return "", fmt.Errorf("invalid url %q, run: wordpeek config set-url <api-url>", cfg.APIURL)
			}
			return cfg.APIURL, nil
		})

		check("Prompt template", func() (string, error) {
			if !strings.Contains(cfg.SystemPrompt, "%word%") {
				return "", fmt.Errorf("warn:template has no %%word%% placeholder, the word will not be sent")
			}
			return fmt.Sprintf("~%d tokens", ai.EstimateTokens(cfg.SystemPrompt)), nil
		})

		check(fmt.Sprintf("Connection test (%s)", cfg.Model), func() (string, error) {
			if cfgErr != nil || strings.TrimSpace(cfg.APIKey) == "" {
				return "", fmt.Errorf("warn:skipped until the configuration is fixed")
			}
			sp := ui.NewSpinner(os.Stderr, "Contacting model...")
			sp.Start()
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			reply, err := ai.Ping(ctx, cfg, nil)
			sp.Stop()
			if err != nil {
				return "", err
			}
			reply = strings.Join(strings.Fields(reply), " ")
			if len(reply) > 40 {
				reply = reply[:40] + "..."
			}
			return fmt.Sprintf("replied %q", reply), nil
		})

		check("Daemon", func() (string, error) {
			client := &http.Client{Timeout: 2 * time.Second}
			resp, err := client.Get("http://" + defaultListen + "/healthz")
			if err != nil {
				return "", fmt.Errorf("warn:not running on %s (start it with: wordpeek serve)", defaultListen)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return "", fmt.Errorf("warn:unexpected status %d from %s", resp.StatusCode, defaultListen)
			}
			return defaultListen, nil
		})

		check("System info", func() (string, error) {
			return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), nil
		})

		fmt.Fprintln(os.Stderr)
		total := pass + fail + warn
		if fail == 0 && warn == 0 {
			green.Fprintf(os.Stderr, "  All %d checks passed. You're good to go.\n\n", total)
		} else if fail == 0 {
			yellow.Fprintf(os.Stderr, "  %d passed, %d warnings. Lookups work, but some things could be better.\n\n", pass, warn)
		} else {
			red.Fprintf(os.Stderr, "  %d passed, %d failed, %d warnings. Fix the failures above.\n\n", pass, fail, warn)
		}

		return nil
	},
}
