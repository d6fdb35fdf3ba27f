package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/VisionKernel/Centerspoke/internal/config"
	"github.com/VisionKernel/Centerspoke/internal/convert"
	"github.com/VisionKernel/Centerspoke/internal/logging"
	"github.com/VisionKernel/Centerspoke/internal/pipeline"
	"github.com/VisionKernel/Centerspoke/internal/prompt"
	"github.com/VisionKernel/Centerspoke/internal/storage"
)

// errUsage reports bad arguments after the flag set has printed its usage.
var errUsage = errors.New("usage")

// cli carries the process streams so commands can be driven from tests.
type cli struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer
	lookup func(string) (string, bool)
}

func newCLI() *cli {
	return &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, lookup: os.LookupEnv}
}

func (c *cli) flagSet(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "usage: centerspoke %s [flags] %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// dbFlags are shared by commands that open a connection.
type dbFlags struct {
	kind string
	dsn  string
}

func (d *dbFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.kind, "kind", "", "storage kind: "+strings.Join(storage.ListKinds(), ", "))
	fs.StringVar(&d.dsn, "dsn", "", "connection string; may contain "+config.PasswordToken+" (default $"+config.EnvDSN+")")
}

// resolveDSN fills the DSN from the environment and substitutes the password.
func (c *cli) resolveDSN(dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn, _ = c.lookup(config.EnvDSN)
	}
	if dsn == "" {
		return "", fmt.Errorf("no connection string; pass -dsn or set %s", config.EnvDSN)
	}
	return config.ResolveDSN(dsn, c.lookup, func(label string) (string, error) {
		return prompt.Password(c.stdin, c.stderr, label)
	})
}

func (c *cli) load(ctx context.Context, args []string) error {
	fs := c.flagSet("load", "[file]")
	var (
		db         dbFlags
		cfgPath    = fs.String("config", "", "pipeline file (.json, .yaml, .yml)")
		file       = fs.String("file", "", "input file; overrides source.file.path")
		sheet      = fs.String("sheet", "", "worksheet of a spreadsheet input")
		encoding   = fs.String("encoding", "", "text encoding of a delimited input, e.g. windows-1252")
		index      = fs.String("index", "", "column parsed into the date index")
		tableName  = fs.String("table", "", "destination table (default derived from the file name)")
		create     = fs.Bool("create", false, "create the table before inserting")
		bulk       = fs.Bool("bulk", false, "use the backend's native bulk path")
		batch      = fs.Int("batch", 0, "rows per round trip (default 1000)")
		indicators = fs.String("indicators", "", "append financial indicators computed from this price column")
		dryRun     = fs.Bool("dry-run", false, "print the statements instead of writing")
		logFlags   logOptions
		metFlags   metricsOptions
	)
	db.register(fs)
	logFlags.register(fs)
	metFlags.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := config.Pipeline{Source: config.Source{Kind: "file"}}
	if *cfgPath != "" {
		var err error
		if p, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}
	if p.Source.Kind == "" {
		p.Source.Kind = "file"
	}
	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}
	overrideString(&p.Source.File.Path, *file)
	overrideString(&p.Source.File.Sheet, *sheet)
	overrideString(&p.Source.File.Encoding, *encoding)
	overrideString(&p.Source.File.IndexColumn, *index)
	overrideString(&p.Storage.Kind, db.kind)
	overrideString(&p.Storage.DB.DSN, db.dsn)
	overrideString(&p.Storage.DB.Table, *tableName)
	p.Storage.DB.AutoCreateTable = p.Storage.DB.AutoCreateTable || *create
	p.Storage.DB.Bulk = p.Storage.DB.Bulk || *bulk
	if *batch > 0 {
		p.Storage.DB.BatchSize = *batch
	}
	if *indicators != "" {
		p.Transform = withIndicators(p.Transform, *indicators)
	}
	logFlags.apply(&p.Logging)
	metFlags.apply(&p.Metrics, c.lookup)
	p.ApplyEnv(c.lookup)

	if p.Source.File.Path == "" {
		fs.Usage()
		return errUsage
	}
	if *dryRun && p.Storage.Kind == "" {
		p.Storage.Kind = "standard"
	}

	kinds := storage.ListKinds()
	if *dryRun {
		kinds = nil
	}
	issues := config.ValidatePipeline(p, kinds)
	if *dryRun {
		issues = dropPath(issues, "storage.db.dsn")
	}
	c.printIssues(issues)
	if config.HasErrors(issues) {
		return errors.New("invalid pipeline")
	}

	logger := logging.Setup(p.Logging.Level, p.Logging.Format, c.stderr)
	ctx = logging.WithLogger(ctx, logger)

	flush := setupMetrics(ctx, p.Metrics, p.Job)
	defer flush()

	if !*dryRun {
		dsn, err := c.resolveDSN(p.Storage.DB.DSN)
		if err != nil {
			return err
		}
		p.Storage.DB.DSN = dsn
	}

	res, err := pipeline.Run(ctx, p, *dryRun)
	if err != nil {
		return err
	}
	if *dryRun {
		st := res.Statement
		fmt.Fprintln(c.stdout, st.CreateSQL+";")
		fmt.Fprintln(c.stdout, st.InsertSQL+";")
		fmt.Fprintf(c.stdout, "-- %d rows (%d read, %d dropped)\n", len(st.Rows), res.Loaded, res.Dropped)
		return nil
	}
	successColor.Fprintf(c.stdout, "loaded %d rows into %s (%d read, %d dropped)\n",
		res.Inserted, res.Statement.Table, res.Loaded, res.Dropped)
	return nil
}

// probeColumn is one line of probe output.
type probeColumn struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	SQLType string `json:"sql_type"`
	Nulls   int    `json:"nulls"`
}

type probeReport struct {
	Table     string        `json:"table"`
	Rows      int           `json:"rows"`
	Dropped   int           `json:"dropped"`
	Columns   []probeColumn `json:"columns"`
	CreateSQL string        `json:"create_sql"`
	InsertSQL string        `json:"insert_sql"`
}

func (c *cli) probe(ctx context.Context, args []string) error {
	fs := c.flagSet("probe", "<file>")
	var (
		kind       = fs.String("kind", "standard", "dialect to render: standard, "+strings.Join(storage.ListKinds(), ", "))
		sheet      = fs.String("sheet", "", "worksheet of a spreadsheet input")
		encoding   = fs.String("encoding", "", "text encoding of a delimited input")
		index      = fs.String("index", "", "column parsed into the date index")
		tableName  = fs.String("table", "", "table name (default derived from the file name)")
		indicators = fs.String("indicators", "", "append financial indicators computed from this price column")
		asJSON     = fs.Bool("json", false, "print the report as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	p := config.Pipeline{
		Source: config.Source{Kind: "file", File: config.SourceFile{
			Path: fs.Arg(0), Sheet: *sheet, Encoding: *encoding, IndexColumn: *index,
		}},
		Storage: config.Storage{Kind: *kind, DB: config.DBConfig{Table: *tableName}},
	}
	if *indicators != "" {
		p.Transform = withIndicators(nil, *indicators)
	}

	dialect := storage.DialectFor(*kind)
	res, err := pipeline.Prepare(ctx, p, dialect)
	if err != nil {
		return err
	}

	rep := probeReport{
		Table:     res.Statement.Table,
		Rows:      res.Table.Rows(),
		Dropped:   res.Dropped,
		CreateSQL: res.Statement.CreateSQL,
		InsertSQL: res.Statement.InsertSQL,
	}
	for _, col := range res.Table.Columns {
		rep.Columns = append(rep.Columns, probeColumn{
			Name:    col.Name,
			Type:    col.Type.String(),
			SQLType: dialect.SQLType(col.Type),
			Nulls:   col.NullCount(),
		})
	}

	if *asJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(c.stdout, "table %s: %d rows, %d dropped\n\n", rep.Table, rep.Rows, rep.Dropped)
	tw := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tSQL TYPE\tNULLS")
	for _, col := range rep.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", col.Name, col.Type, col.SQLType, col.Nulls)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "\n%s;\n", rep.CreateSQL)
	return nil
}

func (c *cli) convert(ctx context.Context, args []string) error {
	fs := c.flagSet("convert", "<input>...")
	var (
		out      = fs.String("o", "", "output workbook (.xlsx)")
		encoding = fs.String("encoding", "", "text encoding of the inputs")
		workers  = fs.Int("workers", 0, "inputs read concurrently (default GOMAXPROCS)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	inputs := fs.Args()
	// "convert in.csv out.xlsx" without -o.
	if *out == "" && len(inputs) == 2 && strings.EqualFold(filepath.Ext(inputs[1]), ".xlsx") {
		*out, inputs = inputs[1], inputs[:1]
	}
	if *out == "" || len(inputs) == 0 {
		fs.Usage()
		return errUsage
	}

	if err := convert.ToExcel(ctx, inputs, *out, convert.Options{Encoding: *encoding, Workers: *workers}); err != nil {
		return err
	}
	successColor.Fprintf(c.stdout, "wrote %s (%d sheets)\n", *out, len(inputs))
	return nil
}

func (c *cli) tables(ctx context.Context, args []string) error {
	fs := c.flagSet("tables", "")
	var db dbFlags
	db.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if db.kind == "" {
		fs.Usage()
		return errUsage
	}
	dsn, err := c.resolveDSN(db.dsn)
	if err != nil {
		return err
	}

	return storage.With(ctx, storage.Config{Kind: db.kind, DSN: dsn}, func(repo storage.Repository) error {
		names, err := repo.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		if len(names) == 0 {
			warnColor.Fprintln(c.stderr, "no tables")
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(c.stdout, n)
		}
		return nil
	})
}

func (c *cli) createdb(ctx context.Context, args []string) error {
	fs := c.flagSet("createdb", "")
	var db dbFlags
	db.register(fs)
	name := fs.String("name", "", "database to create")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if db.kind == "" || *name == "" {
		fs.Usage()
		return errUsage
	}
	dsn, err := c.resolveDSN(db.dsn)
	if err != nil {
		return err
	}

	return storage.With(ctx, storage.Config{Kind: db.kind, DSN: dsn}, func(repo storage.Repository) error {
		creator, ok := repo.(storage.DatabaseCreator)
		if !ok {
			return fmt.Errorf("storage kind %q cannot create databases", db.kind)
		}
		if err := creator.CreateDatabase(ctx, *name); err != nil {
			return fmt.Errorf("create database %s: %w", *name, err)
		}
		successColor.Fprintf(c.stdout, "created database %s\n", *name)
		return nil
	})
}

func (c *cli) validate(_ context.Context, args []string) error {
	fs := c.flagSet("validate", "[pipeline file]")
	cfgPath := fs.String("config", "", "pipeline file (.json, .yaml, .yml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath == "" && fs.NArg() == 1 {
		*cfgPath = fs.Arg(0)
	}
	if *cfgPath == "" {
		fs.Usage()
		return errUsage
	}

	p, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	p.ApplyEnv(c.lookup)
	issues := config.ValidatePipeline(p, storage.ListKinds())
	c.printIssues(issues)
	if config.HasErrors(issues) {
		return fmt.Errorf("%s: invalid pipeline", *cfgPath)
	}
	successColor.Fprintf(c.stdout, "%s: ok\n", *cfgPath)
	return nil
}

func (c *cli) printIssues(issues []config.Issue) {
	for _, iss := range issues {
		col := warnColor
		if iss.Severity == config.SeverityError {
			col = errorColor
		}
		col.Fprintf(c.stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
}

func dropPath(issues []config.Issue, path string) []config.Issue {
	out := issues[:0]
	for _, iss := range issues {
		if iss.Path != path {
			out = append(out, iss)
		}
	}
	return out
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// withIndicators makes ts compute indicators from priceColumn. An empty list
// gets the default chain plus indicators; an existing indicators transform
// has its price column replaced; otherwise one is appended.
func withIndicators(ts []config.Transform, priceColumn string) []config.Transform {
	if len(ts) == 0 {
		return []config.Transform{
			{Kind: "clean"},
			{Kind: "infer"},
			{Kind: "indicators", Options: config.Options{"price_column": priceColumn}},
		}
	}
	out := make([]config.Transform, len(ts))
	copy(out, ts)
	for i, t := range out {
		if strings.TrimSpace(t.Kind) != "indicators" {
			continue
		}
		opts := make(config.Options, len(t.Options)+1)
		for k, v := range t.Options {
			opts[k] = v
		}
		opts["price_column"] = priceColumn
		out[i].Options = opts
		return out
	}
	return append(out, config.Transform{Kind: "indicators", Options: config.Options{"price_column": priceColumn}})
}
