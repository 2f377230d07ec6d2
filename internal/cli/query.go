package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/roach88/varelim/internal/factor"
	"github.com/roach88/varelim/internal/inference"
	"github.com/roach88/varelim/internal/network"
	"github.com/roach88/varelim/internal/query"
	"github.com/roach88/varelim/internal/store"
)

// metricsNamespace prefixes the metrics printed by --metrics.
const metricsNamespace = "varelim"

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Query    []string
	Evidence map[string]string
	Order    []string
	Database string
	Metrics  bool

	// RunIDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to query.UUIDv7Generator.
	RunIDGenerator query.RunIDGenerator
}

// AnswerRow is one row of the answer factor.
type AnswerRow struct {
	Assignment map[factor.Variable]string `json:"assignment"`
	P          float64                    `json:"p"`
}

// MetricSample is one counter value from the operation metrics.
type MetricSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
	Value  float64           `json:"value"`
}

// QueryOutput is the result of the query command.
type QueryOutput struct {
	RunID     string                     `json:"run_id"`
	Network   string                     `json:"network"`
	Query     []factor.Variable          `json:"query"`
	Evidence  map[factor.Variable]string `json:"evidence"`
	Order     []factor.Variable          `json:"order"`
	Signature string                     `json:"signature"`
	Answer    []AnswerRow                `json:"answer"`
	Calls     []inference.Call           `json:"calls"`
	Stored    bool                       `json:"stored"`
	Metrics   []MetricSample             `json:"metrics,omitempty"`

	table *factor.Table
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return newQueryCommand(&QueryOptions{RootOptions: rootOpts})
}

func newQueryCommand(opts *QueryOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <network>",
		Short: "Compute a posterior by variable elimination",
		Long: `Compute P(query | evidence) over a CUE network by variable elimination.

Hidden variables are eliminated in --order, or in canonical name order if
--order is not given. An explicit empty order (--order "") eliminates nothing
and returns the joint over every unobserved variable.

With --db the run (answer and join/eliminate trace) is appended to a SQLite
run history that "varelim history" reads back.

Examples:
  varelim query ./networks/alarm --query Burglary --evidence JohnCalls=yes,MaryCalls=yes
  varelim query ./networks/rain.cue --query Umbrella --order Rain --db ./runs.db
  varelim query ./networks/alarm --query Burglary --metrics --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("order") {
				opts.Order = nil
			} else if opts.Order == nil {
				opts.Order = []string{}
			}
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Query, "query", "q", nil, "query variables, comma separated (required)")
	_ = cmd.MarkFlagRequired("query")
	cmd.Flags().StringToStringVarP(&opts.Evidence, "evidence", "e", nil, "observed values as Variable=value pairs, comma separated")
	cmd.Flags().StringSliceVar(&opts.Order, "order", nil, "elimination order, comma separated")
	cmd.Flags().StringVar(&opts.Database, "db", "", "append the run to this SQLite database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print operation counters after the query")

	return cmd
}

func runQuery(opts *QueryOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	net, err := network.LoadAndValidate(path)
	if err != nil {
		var validation network.ValidationError
		if errors.As(err, &validation) {
			return formatter.Fail(ExitFailure, validation.Code, err.Error(), err)
		}
		return outputLoadError(formatter, err)
	}
	slog.Debug("network loaded", "network", net.Name, "variables", len(net.Variables))

	q := query.Query{
		Variables: toVariables(opts.Query),
		Evidence:  make(map[factor.Variable]string, len(opts.Evidence)),
	}
	for v, value := range opts.Evidence {
		q.Evidence[factor.Variable(strings.TrimSpace(v))] = strings.TrimSpace(value)
	}
	if opts.Order != nil {
		q.Order = toVariables(opts.Order)
	}

	runOpts := []query.Option{}
	if opts.RunIDGenerator != nil {
		runOpts = append(runOpts, query.WithRunIDGenerator(opts.RunIDGenerator))
	}

	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		rec, err := inference.NewMetricsRecorder(reg, metricsNamespace)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeBadFlag, "failed to set up metrics", err)
		}
		runOpts = append(runOpts, query.WithRecorder(rec))
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		runOpts = append(runOpts, query.WithStore(st))
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := query.Run(ctx, net, q, runOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeQuery, err.Error(), err)
	}

	out := newQueryOutput(result)
	out.Stored = opts.Database != ""
	if reg != nil {
		out.Metrics, err = gatherMetrics(reg)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeQuery, "failed to gather metrics", err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}
	writeQueryText(formatter.Writer, out)
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func toVariables(names []string) []factor.Variable {
	out := make([]factor.Variable, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, factor.Variable(n))
		}
	}
	return out
}

func newQueryOutput(result *query.Result) QueryOutput {
	evidence := result.Query.Evidence
	if evidence == nil {
		evidence = map[factor.Variable]string{}
	}
	order := result.Order
	if order == nil {
		order = []factor.Variable{}
	}

	out := QueryOutput{
		RunID:     result.RunID,
		Network:   result.Network,
		Query:     factor.SortVariables(result.Query.Variables),
		Evidence:  evidence,
		Order:     order,
		Signature: factor.Signature(result.Answer),
		Calls:     result.Calls,
		table:     result.Answer,
	}
	for _, a := range result.Answer.Assignments() {
		p, _ := result.Answer.Probability(a)
		row := AnswerRow{Assignment: make(map[factor.Variable]string, len(a)), P: p}
		for _, b := range a {
			row.Assignment[b.Variable] = b.Value
		}
		out.Answer = append(out.Answer, row)
	}
	return out
}

// gatherMetrics flattens every counter in reg into samples sorted by name
// and label values.
func gatherMetrics(reg *prometheus.Registry) ([]MetricSample, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}

	var samples []MetricSample
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			samples = append(samples, MetricSample{
				Name:   mf.GetName(),
				Labels: labels,
				Value:  m.GetCounter().GetValue(),
			})
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return formatLabels(samples[i].Labels) < formatLabels(samples[j].Labels)
	})
	return samples, nil
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return strings.Join(parts, ",")
}

func writeQueryText(w io.Writer, out QueryOutput) {
	fmt.Fprintf(w, "Run %s (network %s)\n", out.RunID, out.Network)
	fmt.Fprintln(w)
	fmt.Fprint(w, factor.Format(out.table))
	fmt.Fprintln(w)
	writeTrace(w, out.Order, out.Calls)

	if out.Stored {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Run stored.")
	}

	if len(out.Metrics) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Metrics:")
		for _, s := range out.Metrics {
			fmt.Fprintf(w, "  %s{%s} %g\n", s.Name, formatLabels(s.Labels), s.Value)
		}
	}
}

// writeTrace prints the elimination order and the numbered call trace.
func writeTrace(w io.Writer, order []factor.Variable, calls []inference.Call) {
	if len(order) == 0 {
		fmt.Fprintln(w, "Order: (none)")
	} else {
		fmt.Fprintf(w, "Order: %s\n", joinNames(order))
	}

	fmt.Fprintf(w, "Trace (%d calls):\n", len(calls))
	for _, c := range calls {
		fmt.Fprintf(w, "  %3d  %-9s %s\n", c.Seq, c.Operation, c.Variable)
	}
}
