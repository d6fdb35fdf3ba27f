// Command centerspoke loads CSV, text, spreadsheet and Parquet files into
// database tables, inferring a column type for every field on the way.
//
// Usage:
//
//	centerspoke load     -config pipeline.yaml
//	centerspoke load     -kind mysql -dsn 'app:{password}@tcp(db:3306)/sales' -create prices.csv
//	centerspoke probe    [-kind postgres] [-json] prices.xlsx
//	centerspoke convert  -o out.xlsx a.csv b.txt
//	centerspoke tables   -kind mssql -dsn 'sqlserver://...'
//	centerspoke createdb -kind mysql -dsn '...' -name analytics
//	centerspoke validate -config pipeline.json
//
// A .env file in the working directory is read at startup; variables already
// set in the environment win.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	// register all backends with the storage factory.
	_ "github.com/VisionKernel/Centerspoke/internal/storage/all"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

// command is one subcommand.
type command struct {
	name    string
	summary string
	run     func(c *cli, ctx context.Context, args []string) error
}

var commands = []command{
	{"load", "load a file into a database table", (*cli).load},
	{"probe", "print the inferred schema of a file", (*cli).probe},
	{"convert", "convert CSV/TXT files into one Excel workbook", (*cli).convert},
	{"tables", "list tables in a database", (*cli).tables},
	{"createdb", "create a database on a server", (*cli).createdb},
	{"validate", "check a pipeline file", (*cli).validate},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatalf("read .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newCLI().run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// run dispatches args to a subcommand and returns the process exit code.
func (c *cli) run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		c.usage(c.stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}
		err := cmd.run(c, ctx, args[1:])
		switch {
		case err == nil:
			return 0
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.Is(err, errUsage):
			return 2
		default:
			errorColor.Fprintf(c.stderr, "%s: %v\n", cmd.name, err)
			return 1
		}
	}
	errorColor.Fprintf(c.stderr, "unknown command %q\n", args[0])
	c.usage(c.stderr)
	return 2
}

func (c *cli) usage(w io.Writer) {
	fmt.Fprintln(w, "usage: centerspoke <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-9s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `run "centerspoke <command> -h" for command flags`)
}

func fatalf(format string, a ...any) {
	errorColor.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
