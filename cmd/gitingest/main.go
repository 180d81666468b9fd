package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gitingest-go/internal/app"
	"gitingest-go/internal/config"
	"gitingest-go/internal/ingest"
	"gitingest-go/internal/render"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Output file names used when stdout is a terminal and no file was given.
const (
	defaultMarkdownFile = "project_summary.md"
	defaultJSONFile     = "project_summary.json"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then .env and process environment overrides.
func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}

	if err := config.LoadDotenv(".env"); err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(defaults["config_path"], config.NewConfig(defaults["base_dir"]))
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, "", err
	}
	return cfg, defaults["config_path"], nil
}

// newApp creates an App from cfg. The caller must defer app.Close().
func newApp(cfg *config.Config, command string, args []string, verbose bool) (*app.App, error) {
	a, err := app.NewApp(cfg, app.Options{
		Command:    command,
		Parameters: strings.Join(args, " "),
		Verbose:    verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "gitingest",
	Short:        "Summarize a project tree, including its database files",
	SilenceUsage: true,
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [PATH]",
	Short: "Write a digest of a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("format") {
			cfg.Output.Format, _ = flags.GetString("format")
		}
		if flags.Changed("output") {
			cfg.Output.File, _ = flags.GetString("output")
		}
		if flags.Changed("extract-schema") {
			cfg.DatabaseAnalysis.ExtractSchema, _ = flags.GetBool("extract-schema")
		}
		if flags.Changed("include-system-tables") {
			cfg.DatabaseAnalysis.IncludeSystemTables, _ = flags.GetBool("include-system-tables")
		}
		verbose, _ := flags.GetBool("verbose")

		a, err := newApp(cfg, "scan", args, verbose)
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 0 {
			target = args[0]
		}

		report, err := a.Scan(cmd.Context(), target)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		out, path, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		if err := emitDigest(out, cfg.Output.Format, report); err != nil {
			return err
		}

		if path != "" {
			fmt.Fprintf(os.Stderr, "Digest written to %s (%d file(s), %d database file(s))\n",
				path, report.Stats.Included, report.Stats.Databases)
		}
		return nil
	},
}

// openOutput picks the digest destination. An explicit file wins; on a
// terminal the default file for the format is used; otherwise stdout.
// The returned path is empty for stdout.
func openOutput(out config.OutputConfig) (io.WriteCloser, string, error) {
	path := out.File
	if path == "" && term.IsTerminal(int(os.Stdout.Fd())) {
		path = defaultMarkdownFile
		if out.Format == config.FormatJSON {
			path = defaultJSONFile
		}
	}
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, "", nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, "", fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("creating output file: %w", err)
	}
	return f, path, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// emitDigest writes the digest and closes out. A close error is returned.
func emitDigest(out io.WriteCloser, format string, report *ingest.Report) error {
	if err := writeDigest(out, format, report); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}

func writeDigest(w io.Writer, format string, report *ingest.Report) error {
	if format == config.FormatJSON {
		return render.WriteJSON(w, report)
	}
	return render.WriteMarkdown(w, report)
}

// analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Describe a single database file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if cmd.Flags().Changed("extract-schema") {
			cfg.DatabaseAnalysis.ExtractSchema, _ = cmd.Flags().GetBool("extract-schema")
		}
		// Analyzing a file by name is an explicit request.
		cfg.DatabaseAnalysis.Enabled = true

		a, err := newApp(cfg, "analyze", args, false)
		if err != nil {
			return err
		}
		defer a.Close()

		m, ok, err := a.AnalyzeFile(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s is not a database file", args[0])
		}

		if asJSON {
			data, err := render.JSONFragment(m)
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		fmt.Println(render.Summary(m))
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Log Dir: %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Log Dir:               %s\n", cfg.LogDir)
		fmt.Printf("Workers:               %d\n", cfg.Workers)
		fmt.Printf("Output Format:         %s\n", cfg.Output.Format)
		fmt.Printf("Output File:           %s\n", cfg.Output.File)
		fmt.Printf("Max File Size (KB):    %d\n", cfg.Filters.MaxFileSize)
		fmt.Printf("Use .gitignore:        %t\n", cfg.Filters.UseGitignore)
		fmt.Printf("Ignore:                %s\n", strings.Join(cfg.Filters.Ignore, ", "))
		fmt.Printf("Database Analysis:     %t\n", cfg.DatabaseAnalysis.Enabled)
		fmt.Printf("Extract Schema:        %t\n", cfg.DatabaseAnalysis.ExtractSchema)
		fmt.Printf("Include System Tables: %t\n", cfg.DatabaseAnalysis.IncludeSystemTables)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("format", "f", config.FormatMarkdown, "Output format: markdown or json")
	scanCmd.Flags().StringP("output", "o", "", "Output file (\"-\" for stdout)")
	scanCmd.Flags().Bool("extract-schema", false, "Parse CREATE TABLE statements into columns")
	scanCmd.Flags().Bool("include-system-tables", false, "Include sqlite_ internal tables")
	scanCmd.Flags().BoolP("verbose", "v", false, "Copy log output to stderr")
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Bool("json", false, "Print the JSON fragment instead of the summary")
	analyzeCmd.Flags().Bool("extract-schema", false, "Parse CREATE TABLE statements into columns")
}
