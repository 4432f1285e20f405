package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/esq/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Hash     string
	Index    string
	Limit    int
	Stats    bool
}

// JournalEntry is one execution in command output.
type JournalEntry struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Index     string    `json:"index"`
	DocHash   string    `json:"doc_hash"`
	Mode      string    `json:"mode"`
	Total     int64     `json:"total"`
	TookMs    int64     `json:"took_ms"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JournalStats is the --stats output.
type JournalStats struct {
	Executions int64 `json:"executions"`
	Errors     int64 `json:"errors"`
	Documents  int64 `json:"documents"`
	LastSeq    int64 `json:"last_seq"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the execution journal",
		Long: `List searches recorded in the execution journal.

The journal path comes from --db, or from journal.path in the config.
The journal is opened read-only and must already exist.

Example:
  esq journal --db esq.db --hash 3f2a... --limit 20
  esq journal --db esq.db --stats`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "only executions of this document hash")
	cmd.Flags().StringVar(&opts.Index, "index", "", "only executions against this index")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum executions to list (0 for all)")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "print journal totals instead of executions")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	path := opts.Database
	if path == "" {
		cfg, err := opts.LoadConfig()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error())
		}
		path = cfg.Journal.Path
	}
	formatter.VerboseLog("Opening journal %s", path)

	st, err := store.OpenReadOnly(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournalFailed, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Stats {
		stats, err := st.Stats(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournalFailed, err.Error())
		}
		return outputJournalStats(formatter, JournalStats(stats))
	}

	executions, err := st.ListExecutions(ctx, store.Filter{
		DocHash: opts.Hash,
		Index:   opts.Index,
		Limit:   opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournalFailed, err.Error())
	}

	entries := make([]JournalEntry, len(executions))
	for i, e := range executions {
		entries[i] = JournalEntry{
			ID:        e.ID,
			Seq:       e.Seq,
			Index:     e.Index,
			DocHash:   e.DocHash,
			Mode:      e.Mode,
			Total:     e.Total,
			TookMs:    e.TookMs,
			Status:    e.Status,
			Error:     e.Error,
			CreatedAt: e.CreatedAt,
		}
	}
	return outputJournalEntries(formatter, entries)
}

func outputJournalStats(formatter *OutputFormatter, stats JournalStats) error {
	if formatter.Format == "json" {
		return formatter.Success(stats)
	}
	w := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "executions:\t%d\n", stats.Executions)
	fmt.Fprintf(w, "errors:\t%d\n", stats.Errors)
	fmt.Fprintf(w, "documents:\t%d\n", stats.Documents)
	fmt.Fprintf(w, "last seq:\t%d\n", stats.LastSeq)
	return w.Flush()
}

func outputJournalEntries(formatter *OutputFormatter, entries []JournalEntry) error {
	if formatter.Format == "json" {
		return formatter.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No executions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tINDEX\tHASH\tMODE\tTOTAL\tTOOK\tSTATUS")
	for _, e := range entries {
		status := e.Status
		if e.Error != "" {
			status += ": " + e.Error
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%dms\t%s\n",
			e.Seq, e.Index, shortHash(e.DocHash), e.Mode, e.Total, e.TookMs, status)
	}
	return w.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
