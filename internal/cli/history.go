package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
	"github.com/roach88/varelim/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Network  string // optional - filter listing to one network
	Verify   bool
}

// HistoryList is the listing output of the history command.
type HistoryList struct {
	Runs   []store.RunSummary `json:"runs"`
	Broken []store.RunCheck   `json:"broken,omitempty"`
}

// HistoryRun is the single-run output of the history command.
type HistoryRun struct {
	ID        string                     `json:"id"`
	Network   string                     `json:"network"`
	Query     []factor.Variable          `json:"query"`
	Evidence  map[factor.Variable]string `json:"evidence"`
	Order     []factor.Variable          `json:"order"`
	AnswerID  string                     `json:"answer_id"`
	Signature string                     `json:"signature"`
	Answer    []AnswerRow                `json:"answer"`
	Calls     []inference.Call           `json:"calls"`
	Check     *store.RunCheck            `json:"check,omitempty"`

	table factor.Factor
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List stored runs or show one run",
		Long: `Read the run history written by "varelim query --db".

Without a run ID, lists every stored run in ID order (UUIDv7 IDs sort by
creation time). With a run ID, shows the run's answer and its full
join/eliminate trace.

--verify re-hashes stored answers and checks that each trace is numbered
1..N without gaps.

Exit codes:
  0 - Success (and, with --verify, every checked run is intact)
  1 - --verify found a broken run
  2 - Command error (database not found, unknown run, etc.)

Examples:
  varelim history --db ./runs.db
  varelim history --db ./runs.db --network alarm
  varelim history --db ./runs.db 01935c4e-... --verify --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runHistoryShow(opts, args[0], cmd)
			}
			return runHistoryList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Network, "network", "", "list runs of this network only")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check stored answers and traces for corruption")

	return cmd
}

// openHistory opens an existing database. Unlike query --db it never
// creates one.
func openHistory(formatter *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	return st, nil
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	st, err := openHistory(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.RunSummary
	if opts.Network != "" {
		runs, err = st.ListRunsForNetwork(ctx, opts.Network)
	} else {
		runs, err = st.ListRuns(ctx)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}

	out := HistoryList{Runs: runs}
	if opts.Verify {
		out.Broken, err = st.FindBrokenRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to verify runs", err)
		}
	}

	if formatter.JSON() {
		if err := outputHistoryJSON(formatter, out, len(out.Broken)); err != nil {
			return err
		}
	} else {
		writeHistoryList(formatter.Writer, out, opts.Verify)
	}

	if len(out.Broken) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d broken run(s)", len(out.Broken)))
	}
	return nil
}

func runHistoryShow(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := commandContext(cmd)

	st, err := openHistory(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("run not found: %s", runID), err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	out := newHistoryRun(run)
	broken := 0
	if opts.Verify {
		check, err := st.VerifyRun(ctx, runID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to verify run", err)
		}
		out.Check = &check
		if !check.OK() {
			broken = 1
		}
	}

	if formatter.JSON() {
		if err := outputHistoryJSON(formatter, out, broken); err != nil {
			return err
		}
	} else {
		writeHistoryRun(formatter.Writer, out)
	}

	if broken > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s is broken", runID))
	}
	return nil
}

func newHistoryRun(run *store.Run) HistoryRun {
	out := HistoryRun{
		ID:        run.ID,
		Network:   run.Network,
		Query:     run.Query,
		Evidence:  run.Evidence,
		Order:     run.Order,
		AnswerID:  run.AnswerID,
		Signature: factor.Signature(run.Answer),
		Calls:     run.Calls,
		table:     run.Answer,
	}
	for _, a := range run.Answer.Assignments() {
		p, _ := run.Answer.Probability(a)
		row := AnswerRow{Assignment: make(map[factor.Variable]string, len(a)), P: p}
		for _, b := range a {
			row.Assignment[b.Variable] = b.Value
		}
		out.Answer = append(out.Answer, row)
	}
	return out
}

func outputHistoryJSON(formatter *OutputFormatter, data any, broken int) error {
	response := CLIResponse{Status: "ok", Data: data}
	if broken > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeBrokenRun,
			Message: fmt.Sprintf("%d broken run(s)", broken),
		}
	}
	return formatter.encode(response)
}

func writeHistoryList(w io.Writer, out HistoryList, verified bool) {
	if len(out.Runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return
	}

	for _, r := range out.Runs {
		evidence := factor.FromMap(r.Evidence).String()
		if evidence == "" {
			evidence = "(none)"
		}
		fmt.Fprintf(w, "%s  %-12s P(%s) evidence: %s  calls: %d\n",
			r.ID, r.Network, joinNames(r.Query), evidence, r.Calls)
	}
	fmt.Fprintf(w, "\n%d run(s)\n", len(out.Runs))

	if !verified {
		return
	}
	if len(out.Broken) == 0 {
		fmt.Fprintln(w, "✓ All runs verified")
		return
	}
	for _, c := range out.Broken {
		fmt.Fprintf(w, "✗ %s: answer intact=%t, %d calls, last seq %d, contiguous=%t\n",
			c.RunID, c.AnswerIntact, c.CallCount, c.LastSeq, c.Contiguous)
	}
}

func writeHistoryRun(w io.Writer, out HistoryRun) {
	fmt.Fprintf(w, "Run %s (network %s)\n", out.ID, out.Network)
	fmt.Fprintf(w, "Answer %s\n", out.AnswerID)
	fmt.Fprintln(w)
	fmt.Fprint(w, factor.Format(out.table))
	fmt.Fprintln(w)
	writeTrace(w, out.Order, out.Calls)

	if out.Check != nil {
		fmt.Fprintln(w)
		if out.Check.OK() {
			fmt.Fprintln(w, "✓ Run verified")
		} else {
			fmt.Fprintf(w, "✗ Run broken: answer intact=%t, %d calls, last seq %d, contiguous=%t\n",
				out.Check.AnswerIntact, out.Check.CallCount, out.Check.LastSeq, out.Check.Contiguous)
		}
	}
}

func joinNames(vars []factor.Variable) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
