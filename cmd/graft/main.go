package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sokinpui/graft/cli"
	"github.com/sokinpui/graft/graft"
	"github.com/sokinpui/graft/internal/logging"
	"github.com/sokinpui/graft/internal/tui"
	"github.com/sokinpui/graft/internal/ui"
	"github.com/sokinpui/graft/internal/watch"
	"github.com/sokinpui/graft/model"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cli.ParseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		ui.Error("Error: %v", err)
		return 2
	}

	log, err := logging.New(cfg.Verbose, cfg.JSONLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		return 1
	}
	defer log.Sync()

	app, err := graft.New(cfg, log)
	if err != nil {
		ui.Error("Failed to initialize application: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Watch {
		return runWatch(ctx, app, cfg, log)
	}

	var summary model.Summary
	if cfg.NoTUI {
		summary, err = runPlain(ctx, app)
	} else {
		summary, err = runTUI(ctx, app, cfg)
	}
	if err != nil {
		if cfg.NoTUI {
			ui.Error("Error: %v", err)
		}
		var de *graft.DetailedError
		if cfg.NoTUI && errors.As(err, &de) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", de.Stack)
		}
		return 1
	}

	printDiffs(cfg, summary)
	if len(summary.Failed) > 0 {
		return 1
	}
	return 0
}

func printDiffs(cfg *cli.Config, summary model.Summary) {
	if !cfg.Diff && !cfg.DryRun {
		return
	}
	for _, d := range summary.Diffs {
		ui.PrintDiff(os.Stdout, d)
	}
}

// runWatch applies the input file every time it is saved until interrupted.
func runWatch(ctx context.Context, app *graft.App, cfg *cli.Config, log *zap.Logger) int {
	ui.Header("Watching %s (Ctrl+C to stop)", cfg.Input)
	err := watch.New(cfg.Input, 0, log.Named("watch")).Run(ctx, func(content string) {
		summary, err := app.ApplyText(ctx, content)
		if err != nil {
			ui.Error("Error: %v", err)
			return
		}
		ui.PrintSummary(summary)
		printDiffs(cfg, summary)
	})
	if err != nil {
		ui.Error("Error: %v", err)
		return 1
	}
	return 0
}

func runPlain(ctx context.Context, app *graft.App) (model.Summary, error) {
	bar := ui.NewProgressBar(0, "Applying")
	app.SetProgressCallback(bar.Set)
	summary, err := app.Execute(ctx)
	bar.Finish()
	if err != nil {
		return summary, err
	}
	ui.PrintSummary(summary)
	return summary, nil
}

func runTUI(ctx context.Context, app *graft.App, cfg *cli.Config) (model.Summary, error) {
	var opts []tea.ProgramOption
	if cfg.Input == "" || cfg.Input == "-" {
		// stdin may carry the input text; keep bubbletea off it.
		if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
			opts = append(opts, tea.WithInput(nil))
		}
	}
	opts = append(opts, tea.WithOutput(os.Stderr))

	p := tea.NewProgram(tui.New(ctx, app), opts...)
	app.SetProgressCallback(func(current, total int) {
		p.Send(tui.ProgressMsg{Current: current, Total: total})
	})
	final, err := p.Run()
	if err != nil {
		return model.Summary{}, fmt.Errorf("error running program: %w", err)
	}
	m, ok := final.(tui.Model)
	if !ok {
		return model.Summary{}, errors.New("unexpected program state")
	}
	return m.Summary()
}
