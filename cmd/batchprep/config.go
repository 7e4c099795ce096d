package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/vmunix/batchprep/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate a configuration file",
	Long:  "Validates TOML syntax, option values and environment variable substitution.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), cfg)
	}
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		found, err := config.Discover()
		if err != nil {
			return err
		}
		path = found
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			printConfigErrors(w, cfgErr)
			return errors.New("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(w, cfg)
	fmt.Fprintln(w, "\nConfiguration valid!")
	return nil
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, s := range e.Sections() {
			fmt.Fprintf(w, "  [%s]\n", s.Section)
			for _, p := range s.Problems {
				fmt.Fprintf(w, "    - %s\n", p)
			}
		}
		fmt.Fprintln(w)
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Output:      %s\n", orNone(cfg.Output.Dir))
	fmt.Fprintf(w, "  Template:    %s", cfg.Naming.Template)
	if cfg.Naming.AddSequenceNumber {
		fmt.Fprintf(w, " (playlists: %s)", cfg.Naming.SequenceTemplate)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Download:    %s / %s\n", cfg.Download.Container, cfg.Download.Quality)
	fmt.Fprintf(w, "  Reservation: %d attempts, on abort %s\n", cfg.Reservation.MaxAttempts, cfg.Reservation.OnAbort)
	if cfg.Output.GenerateManifest {
		fmt.Fprintf(w, "  Manifest:    %s\n", cfg.Output.ManifestName)
	}
	if cfg.History.Enabled {
		fmt.Fprintf(w, "  History:     %s\n", cfg.History.Path)
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
