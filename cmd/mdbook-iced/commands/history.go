package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/iced-rs/mdbook-iced/internal/environment"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/ledger"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Root  string `short:"r" type:"path" default:"." help:"Book root directory"`
	Limit int    `short:"n" default:"20" help:"Number of runs to show"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	settings, err := root.loadSettings(h.Root)
	if err != nil {
		return err
	}
	path, ok := settings.LedgerPath(environment.WorkspaceDir(h.Root))
	if !ok {
		return errors.ConfigError("the run ledger is disabled in the settings").Build()
	}
	if _, err := os.Stat(path); err != nil {
		_, _ = fmt.Fprintln(g.Stdout, "No runs recorded.")
		return nil
	}

	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.History(g.Context, h.Limit)
	if err != nil {
		return err
	}
	printHistory(g.Stdout, runs)
	return nil
}

func printHistory(w io.Writer, runs []ledger.RunSummary) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN ID\tSTARTED\tMODE\tSTATUS\tCOMPILED\tCACHED\tFAILED\tPRUNED\tDURATION")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Mode,
			r.Status,
			r.Stats.Compiled,
			r.Stats.CacheHits,
			r.Stats.Failures,
			r.Stats.Pruned,
			(time.Duration(r.Stats.DurationMS) * time.Millisecond).String())
	}
	_ = tw.Flush()
}
