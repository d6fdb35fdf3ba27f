// Package pipeline runs one load end to end: read the input file, apply the
// transform chain, render the table statements for the backend's dialect and
// hand them to the storage collaborator.
//
// Stages run in sequence on a fully materialized table. Each stage reports a
// step sample to the metrics package; the caller flushes metrics.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/VisionKernel/Centerspoke/internal/config"
	"github.com/VisionKernel/Centerspoke/internal/ddl"
	"github.com/VisionKernel/Centerspoke/internal/logging"
	"github.com/VisionKernel/Centerspoke/internal/metrics"
	"github.com/VisionKernel/Centerspoke/internal/source"
	"github.com/VisionKernel/Centerspoke/internal/storage"
	"github.com/VisionKernel/Centerspoke/internal/table"
	"github.com/VisionKernel/Centerspoke/internal/transformer"
)

// DefaultJob labels metrics when a pipeline has no job name.
const DefaultJob = "centerspoke"

// Test seams.
var (
	withRepository = storage.With
	newRunID       = uuid.NewString
)

// Result summarizes one run.
type Result struct {
	RunID     string
	Table     table.Table   // the table after all transforms
	Statement ddl.Statement // what was (or would be) sent to the database
	Loaded    int           // rows read from the source
	Dropped   int           // rows removed by the transform chain
	Inserted  int64
	Batches   int64
}

// Prepare loads and transforms the input and renders the statements for
// dialect. It performs no database I/O.
func Prepare(ctx context.Context, p config.Pipeline, dialect ddl.Dialect) (Result, error) {
	job := jobName(p)
	var res Result

	chain, err := BuildChain(p.Transform)
	if err != nil {
		return res, err
	}

	var t table.Table
	err = step(job, "load", func() error {
		t, err = source.Load(ctx, p.Source.File.Path, source.Options{
			Sheet:       p.Source.File.Sheet,
			Encoding:    p.Source.File.Encoding,
			IndexColumn: p.Source.File.IndexColumn,
			TableName:   p.Storage.DB.Table,
		})
		return err
	})
	if err != nil {
		return res, err
	}
	res.Loaded = t.Rows()
	metrics.RecordRow(job, "loaded", int64(res.Loaded))
	logging.FromContext(ctx).Info("pipeline: loaded",
		"path", p.Source.File.Path, "table", t.Name, "rows", t.Rows(), "columns", len(t.Columns))

	if t, err = instrument(job, chain).Apply(ctx, t); err != nil {
		return res, err
	}
	res.Table = t
	res.Dropped = res.Loaded - t.Rows()
	recordColumnTypes(job, t)

	err = step(job, "emit", func() error {
		res.Statement, err = dialect.Emit(t)
		return err
	})
	if err != nil {
		return res, fmt.Errorf("emit %s: %w", t.Name, err)
	}
	return res, nil
}

// Run executes a full load. With dryRun the statements are rendered but no
// connection is opened. The repository is closed before Run returns.
func Run(ctx context.Context, p config.Pipeline, dryRun bool) (Result, error) {
	job := jobName(p)
	runID := newRunID()
	ctx = logging.WithRun(ctx, runID, "job", job)
	log := logging.FromContext(ctx)
	start := time.Now()

	res, err := Prepare(ctx, p, storage.DialectFor(p.Storage.Kind))
	res.RunID = runID
	if err != nil {
		return res, err
	}
	if dryRun {
		log.Info("pipeline: dry run; nothing written", "table", res.Statement.Table, "rows", len(res.Statement.Rows))
		return res, nil
	}

	cfg := storage.Config{
		Kind:      p.Storage.Kind,
		DSN:       p.Storage.DB.DSN,
		Table:     res.Statement.Table,
		Columns:   res.Statement.Columns,
		BatchSize: p.Storage.DB.BatchSize,
	}
	err = step(job, "write", func() error {
		return withRepository(ctx, cfg, func(repo storage.Repository) error {
			var werr error
			res.Inserted, res.Batches, werr = write(ctx, repo, res.Statement, p.Storage.DB, cfg.Batch())
			return werr
		})
	})
	metrics.RecordRow(job, "inserted", res.Inserted)
	metrics.RecordBatches(job, res.Batches)
	if err != nil {
		return res, err
	}

	log.Info("pipeline: load complete",
		"table", res.Statement.Table,
		"loaded", res.Loaded,
		"dropped", res.Dropped,
		"inserted", res.Inserted,
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	return res, nil
}

// write creates the table when asked and inserts every row, using the
// backend's bulk path when db.Bulk is set and available.
func write(ctx context.Context, repo storage.Repository, st ddl.Statement, db config.DBConfig, batch int) (inserted, batches int64, err error) {
	log := logging.FromContext(ctx)

	if db.AutoCreateTable {
		log.Debug("pipeline: create table", "sql", st.CreateSQL)
		if err := repo.Exec(ctx, st.CreateSQL); err != nil {
			return 0, 0, &WriteError{Op: "create", Table: st.Table, Err: err}
		}
	}
	if len(st.Rows) == 0 {
		return 0, 0, nil
	}

	if db.Bulk {
		if c, ok := repo.(storage.Copier); ok {
			n, err := c.CopyFrom(ctx, st.Columns, st.Rows)
			if err != nil {
				return n, 0, &WriteError{Op: "insert", Table: st.Table, Err: err}
			}
			return n, 1, nil
		}
		log.Warn("pipeline: backend has no bulk path; using batched insert")
	}

	n, err := repo.ExecMany(ctx, st.InsertSQL, st.Rows)
	if err != nil {
		return n, 0, &WriteError{Op: "insert", Table: st.Table, Err: err}
	}
	return n, int64((len(st.Rows) + batch - 1) / batch), nil
}

// instrument wraps every stage so it reports a step sample and the rows it
// removed.
func instrument(job string, c transformer.Chain) transformer.Chain {
	out := make(transformer.Chain, len(c))
	for i, t := range c {
		t := t
		out[i] = transformer.Func{
			Label: t.Name(),
			Fn: func(ctx context.Context, in table.Table) (table.Table, error) {
				var res table.Table
				err := step(job, t.Name(), func() error {
					var err error
					res, err = t.Apply(ctx, in)
					return err
				})
				if err != nil {
					return res, err
				}
				if dropped := in.Rows() - res.Rows(); dropped > 0 {
					kind := "dropped"
					if t.Name() == "clean" {
						kind = "deduplicated"
					}
					metrics.RecordRow(job, kind, int64(dropped))
				}
				logging.FromContext(ctx).Debug("pipeline: stage done",
					"stage", t.Name(), "rows", res.Rows(), "columns", len(res.Columns))
				return res, nil
			},
		}
	}
	return out
}

func step(job, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	return err
}

func recordColumnTypes(job string, t table.Table) {
	counts := map[string]int{}
	for _, c := range t.Columns {
		counts[c.Type.String()]++
	}
	types := make([]string, 0, len(counts))
	for k := range counts {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		metrics.RecordColumns(job, k, counts[k])
	}
}

func jobName(p config.Pipeline) string {
	if p.Job != "" {
		return p.Job
	}
	return DefaultJob
}
