package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sokinpui/graft/model"
)

// Config holds all the command-line flag values.
type Config struct {
	model.Config

	ConfigFile string
	Input      string
	StateDir   string
	DryRun     bool
	Diff       bool
	Undo       bool
	Redo       bool
	Watch      bool
	NoTUI      bool
	Nvim       bool
	Verbose    bool
	JSONLog    bool
}

func newFlagSet(cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("graft", pflag.ContinueOnError)

	fs.StringVar(&cfg.ConfigFile, "config", "", "Load options from a YAML file; flags override it.")
	fs.StringVar(&cfg.WorkspaceRoot, "workspace-root", cfg.WorkspaceRoot, "Prefix for relative module paths.")
	fs.BoolVar(&cfg.UseWorkspaceRoot, "use-workspace-root", cfg.UseWorkspaceRoot, "Write modules under --workspace-root and refuse paths that escape it.")
	fs.StringVarP(&cfg.BaseDir, "dir", "C", cfg.BaseDir, "Directory relative module paths resolve against.")
	fs.BoolVar(&cfg.CreateMissingModules, "create-missing", cfg.CreateMissingModules, "Create modules that do not exist.")
	fs.BoolVar(&cfg.PreserveFormatting, "preserve-formatting", cfg.PreserveFormatting, "Skip the external formatter.")
	fs.BoolVar(&cfg.EnableValidation, "validate", cfg.EnableValidation, "Parse updated modules before writing them.")
	fs.BoolVar(&cfg.EnableBackup, "backup", cfg.EnableBackup, "Copy a module to a sibling backup before overwriting it.")
	fs.BoolVar(&cfg.EnableIntegration, "integrate", cfg.EnableIntegration, "Apply code blocks.")
	fs.BoolVar(&cfg.EnableRemoval, "remove", cfg.EnableRemoval, "Apply JSON removal directives.")
	fs.BoolVar(&cfg.StrictParsing, "strict", cfg.StrictParsing, "Treat parse and validation errors as fatal.")
	fs.StringVar(&cfg.FileEncoding, "encoding", cfg.FileEncoding, "Encoding of module files.")
	fs.StringSliceVar(&cfg.FormatterCommand, "formatter", cfg.FormatterCommand, "Formatter command reading stdin and writing stdout.")
	fs.DurationVar(&cfg.FormatterTimeout, "formatter-timeout", cfg.FormatterTimeout, "Time limit for one formatter run.")
	fs.StringVar(&cfg.BackupSuffix, "backup-suffix", cfg.BackupSuffix, "Suffix of backup files.")

	fs.BoolVarP(&cfg.DryRun, "dry-run", "n", cfg.DryRun, "Show what would change without writing.")
	fs.BoolVarP(&cfg.Diff, "diff", "d", cfg.Diff, "Print a unified diff of each change to stdout.")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "Directory for undo history (default: .graft at the git root).")
	fs.BoolVarP(&cfg.Watch, "watch", "w", cfg.Watch, "Apply FILE again every time it is saved.")
	fs.BoolVar(&cfg.NoTUI, "no-tui", cfg.NoTUI, "Print plain output instead of the interactive view.")
	fs.BoolVar(&cfg.Nvim, "nvim", cfg.Nvim, "Reload changed files in the Neovim at $NVIM_LISTEN_ADDRESS.")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Log every decision.")
	fs.BoolVar(&cfg.JSONLog, "json-log", cfg.JSONLog, "Log as JSON.")

	// Mutually exclusive history group
	fs.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last operation.")
	fs.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone operation.")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: graft [flags] [FILE]")
		fmt.Fprintln(os.Stderr, "\nApply Python code blocks and removal directives from FILE, stdin (pipe) or the clipboard.")
		fmt.Fprintln(os.Stderr, "\nExample: pbpaste | graft --diff")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	return fs
}

// ParseFlags parses args (without the program name). A --config file is
// loaded first, then flags given on the command line override it.
func ParseFlags(args []string) (*Config, error) {
	cfg := &Config{Config: model.DefaultConfig()}
	fs := newFlagSet(cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		file := &Config{Config: model.DefaultConfig()}
		if err := LoadFile(cfg.ConfigFile, &file.Config); err != nil {
			return nil, err
		}
		fs = newFlagSet(file)
		fs.SetOutput(io.Discard)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		cfg = file
	}

	if cfg.Undo && cfg.Redo {
		return nil, errors.New("--undo and --redo are mutually exclusive")
	}
	switch fs.NArg() {
	case 0:
	case 1:
		cfg.Input = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one input file, got %d", fs.NArg())
	}
	if cfg.Watch && (cfg.Input == "" || cfg.Input == "-") {
		return nil, errors.New("--watch needs an input file")
	}
	if cfg.Watch && (cfg.Undo || cfg.Redo) {
		return nil, errors.New("--watch cannot be combined with --undo or --redo")
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *model.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}
