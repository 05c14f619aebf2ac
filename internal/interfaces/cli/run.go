package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/motivequery/internal/application/batch"
	"github.com/turtacn/motivequery/internal/domain/structure"
	"github.com/turtacn/motivequery/internal/infrastructure/database/redis"
	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/motivequery/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/motivequery/internal/query"
	"github.com/turtacn/motivequery/internal/querytree"
)

type runOptions struct {
	queryFile   string
	environment []string
	concurrency int
	store       bool
	metrics     bool
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run --query FILE STRUCTURE...",
		Short: "Evaluate a query against one or more structures",
		Long: "Evaluate the query tree stored in a YAML file against every structure given\n" +
			"as argument.  Structures are PDB files (.pdb, .ent) or structure documents\n" +
			"(.yaml, .yml, .json).",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.queryFile, "query", "q", "", "query tree file (required)")
	f.StringSliceVarP(&opts.environment, "env", "e", nil, "extra structures visible to StructureMotive")
	f.IntVarP(&opts.concurrency, "concurrency", "j", 0, "structures evaluated in parallel (default: batch.concurrency)")
	f.BoolVar(&opts.store, "store", false, "keep results in Redis (default: batch.store_results)")
	f.BoolVar(&opts.metrics, "metrics", false, "serve Prometheus metrics while running (default: metrics.enabled)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func runQuery(cmd *cobra.Command, opts *runOptions, paths []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, logger := cliCtx.Config, cliCtx.Logger

	q, err := querytree.LoadFile(opts.queryFile)
	if err != nil {
		return err
	}

	env := make([]*structure.Structure, 0, len(opts.environment))
	for _, p := range opts.environment {
		s, err := structure.LoadFile(p)
		if err != nil {
			return err
		}
		env = append(env, s)
	}

	ctx := cmd.Context()
	if cliCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliCtx.Timeout)
		defer cancel()
	}

	batchCfg := cfg.Batch
	batchCfg.Timeout = 0
	if opts.concurrency > 0 {
		batchCfg.Concurrency = opts.concurrency
	}

	runnerOpts := []batch.Option{
		batch.WithLogger(logger.Named("batch")),
		batch.WithQueryOptions(query.WithEngineConfig(cfg.Engine), query.WithEnvironment(env...)),
	}

	metrics := prometheus.NewNopEngineMetrics()
	if opts.metrics || cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics), logger)
		if err != nil {
			return err
		}
		metrics = prometheus.NewEngineMetrics(collector)
		srvCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := prometheus.Serve(srvCtx, cfg.Metrics.Addr, collector, logger); err != nil {
				logger.Warn("Metrics server stopped", logging.Err(err))
			}
		}()
	}
	runnerOpts = append(runnerOpts, batch.WithMetrics(metrics))

	if opts.store || cfg.Batch.StoreResults {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Result store disabled", logging.Err(err))
		} else {
			defer client.Close()
			runnerOpts = append(runnerOpts, batch.WithStore(
				redis.NewResultStore(client, logger, redis.WithMetrics(metrics))))
		}
	}

	runner := batch.NewRunner(batchCfg, runnerOpts...)
	res, runErr := runner.Run(ctx, q, batch.FromFiles(paths...))
	if res != nil {
		if err := PrintResult(cmd, batchView{res}); err != nil {
			return err
		}
	}
	return runErr
}

// batchView renders a batch result for the terminal.
type batchView struct{ *batch.BatchResult }

func (v batchView) TableHeaders() []string {
	return []string{"Structure", "Status", "Matches", "Result", "Elapsed"}
}

func (v batchView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Items))
	for _, it := range v.Items {
		name := it.StructureID
		if name == "" {
			name = it.Source
		}
		matches := "-"
		result := it.Error
		if it.Status == batch.StatusOK {
			if it.Scalar {
				result = formatValue(it.Value)
			} else {
				matches = strconv.Itoa(len(it.Motives))
				result = formatMotives(it.Motives, 3)
			}
		}
		rows = append(rows, []string{name, statusText(it), matches, result, it.Elapsed.Round(time.Microsecond).String()})
	}
	return rows
}

func (v batchView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s  %s\n", v.RunID, v.Signature)
	for _, it := range v.Items {
		name := it.StructureID
		if name == "" {
			name = it.Source
		}
		switch {
		case it.Status != batch.StatusOK:
			fmt.Fprintf(&sb, "%s: %s %s\n", name, statusText(it), it.Error)
		case it.Scalar:
			fmt.Fprintf(&sb, "%s: %s\n", name, formatValue(it.Value))
		default:
			fmt.Fprintf(&sb, "%s: %d match(es)\n", name, len(it.Motives))
			for _, m := range it.Motives {
				fmt.Fprintf(&sb, "  %s\n", formatIDs(m))
			}
		}
	}
	fmt.Fprintf(&sb, "%s in %s", v.Summary(), v.Elapsed.Round(time.Millisecond))
	return sb.String()
}

func statusText(it batch.ItemResult) string {
	s := string(it.Status)
	if it.Cached {
		s += " (cached)"
	}
	switch it.Status {
	case batch.StatusOK:
		return color.GreenString(s)
	case batch.StatusCancelled:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func formatIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatMotives(ms [][]int, limit int) string {
	parts := make([]string, 0, limit+1)
	for i, m := range ms {
		if i == limit {
			parts = append(parts, fmt.Sprintf("... %d more", len(ms)-limit))
			break
		}
		parts = append(parts, formatIDs(m))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case []int:
		return formatIDs(x)
	case [][]int:
		return formatMotives(x, len(x))
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return strconv.Quote(x)
	}
	return fmt.Sprint(v)
}
