package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/csvtools/internal/dynamo"
	"github.com/JonMunkholm/csvtools/internal/pgstage"
	"github.com/JonMunkholm/csvtools/internal/scan"
	"github.com/JonMunkholm/csvtools/internal/schema"
	"github.com/JonMunkholm/csvtools/internal/watch"
	"github.com/JonMunkholm/csvtools/internal/web"
)

func init() {
	Register(Command{
		Name:    "import_dynamodb",
		Args:    "<in> <model> <table> [-batch-size n] [-strict-dates]",
		Summary: "Validate records and write the valid ones to a DynamoDB table; the rest go to <in>.import_errors.csv.",
		Group:   GroupService,
		Run:     runImportDynamo,
	})
	Register(Command{
		Name:    "load_postgres",
		Args:    "<in> <model> [table] [-schema name] [-strict-dates]",
		Summary: "Validate records and COPY the valid ones into a PostgreSQL staging table; the rest go to <in>.load_errors.csv.",
		Group:   GroupService,
		Run:     runLoadPostgres,
	})
	Register(Command{
		Name:    "serve",
		Args:    "[-port n]",
		Summary: "Serve the model catalogue and the validation API over HTTP.",
		Group:   GroupService,
		Run:     runServe,
	})
	Register(Command{
		Name:    "watch",
		Args:    "<dir> <model> [-debounce d] [-strict-dates]",
		Summary: "Validate CSV files dropped into dir and move them to Validated/ or Rejected/.",
		Group:   GroupService,
		Run:     runWatch,
	})
}

// ImportRejectLog returns where import_dynamodb writes invalid records.
func ImportRejectLog(in string) string { return in + ".import_errors.csv" }

// LoadRejectLog returns where load_postgres writes invalid records.
func LoadRejectLog(in string) string { return in + ".load_errors.csv" }

type importOptions struct {
	Input     string `arg:"input" validate:"required"`
	Model     string `arg:"model" validate:"required"`
	Table     string `arg:"table" validate:"required"`
	BatchSize int    `arg:"batch-size" validate:"gt=0,lte=25"`
	Scan      scanFlags
}

func runImportDynamo(ctx context.Context, env *Env, args []string) error {
	var opts importOptions
	fs := newFlagSet(env, "import_dynamodb")
	fs.IntVar(&opts.BatchSize, "batch-size", env.Config.Dynamo.BatchSize, "items per BatchWriteItem call (1-25)")
	opts.Scan.register(fs, env, false)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 3, 3); err != nil {
		return err
	}
	opts.Input, opts.Model, opts.Table = pos[0], pos[1], pos[2]
	if err := check(opts); err != nil {
		return err
	}

	m, err := schema.Lookup(opts.Model)
	if err != nil {
		return err
	}
	rd, header, err := openChecked(opts.Input, m)
	if err != nil {
		return err
	}
	defer rd.Close()

	client, err := env.DynamoClient(ctx)
	if err != nil {
		return fmt.Errorf("dynamodb client: %w", err)
	}
	rejectPath := ImportRejectLog(opts.Input)
	rejects, err := scan.CreateRejectLog(rejectPath, header)
	if err != nil {
		return err
	}

	dopts := dynamo.OptionsFrom(opts.Table, env.Config.Dynamo)
	dopts.BatchSize = opts.BatchSize
	im := dynamo.NewImporter(client, m, dopts, env.Logger)

	sum, res, err := dynamo.Import(ctx, env.scanner(m, opts.Scan), rd, im, scan.Handlers{Rejected: rejects})
	err = errors.Join(err, rejects.Close())

	env.printf("Table: %s\nModel: %s\n", opts.Table, m.Name())
	printScanSummary(env.Stdout, sum)
	env.printf("Items written: %d\n", res.Written)
	env.printf("Items failed:  %d\n", res.Failed)
	if res.Replaced > 0 {
		env.printf("Items replaced: %d (same key later in the batch)\n", res.Replaced)
	}
	env.printf("Batches:       %d (%d retries)\n", res.Batches, res.Retries)
	env.printf("Rejected records: %s\n", rejectPath)
	if err == nil && res.Failed > 0 {
		err = fmt.Errorf("%d items were still unprocessed after %d retries", res.Failed, dopts.MaxRetries)
	}
	return err
}

type loadOptions struct {
	Input  string `arg:"input" validate:"required"`
	Model  string `arg:"model" validate:"required"`
	Table  string `arg:"table"`
	Schema string `arg:"schema" validate:"required"`
	Scan   scanFlags
}

func runLoadPostgres(ctx context.Context, env *Env, args []string) error {
	var opts loadOptions
	fs := newFlagSet(env, "load_postgres")
	fs.StringVar(&opts.Schema, "schema", env.Config.Database.Schema, "database schema of the staging table")
	opts.Scan.register(fs, env, false)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 2, 3); err != nil {
		return err
	}
	opts.Input, opts.Model = pos[0], pos[1]
	if len(pos) == 3 {
		opts.Table = pos[2]
	}
	if err := check(opts); err != nil {
		return err
	}

	m, err := schema.Lookup(opts.Model)
	if err != nil {
		return err
	}
	rd, header, err := openChecked(opts.Input, m)
	if err != nil {
		return err
	}
	defer rd.Close()

	db, release, err := env.Postgres(ctx)
	if err != nil {
		return err
	}
	defer release()

	rejectPath := LoadRejectLog(opts.Input)
	rejects, err := scan.CreateRejectLog(rejectPath, header)
	if err != nil {
		return err
	}

	table := pgstage.NewTable(m, opts.Schema, opts.Table)
	loader := pgstage.NewLoader(db, table, env.RunID, env.Config.Database.BatchSize, env.Logger)
	sum, res, err := pgstage.Load(ctx, db, env.scanner(m, opts.Scan), rd, loader, scan.Handlers{Rejected: rejects})
	err = errors.Join(err, rejects.Close())

	env.printf("Table:  %s\nRun ID: %s\n", table.Identifier().Sanitize(), env.RunID)
	printScanSummary(env.Stdout, sum)
	env.printf("Rows copied: %d in %d batches\n", res.Rows, res.Batches)
	env.printf("Rejected records: %s\n", rejectPath)
	return err
}

type serveOptions struct {
	Port int `arg:"port" validate:"gt=0,lte=65535"`
}

func runServe(ctx context.Context, env *Env, args []string) error {
	var opts serveOptions
	fs := newFlagSet(env, "serve")
	fs.IntVar(&opts.Port, "port", env.Config.Server.Port, "port to listen on")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 0, 0); err != nil {
		return err
	}
	if err := check(opts); err != nil {
		return err
	}

	cfg := *env.Config
	cfg.Server.Port = opts.Port
	return web.NewServer(&cfg, env.Logger).Run(ctx)
}

type watchOptions struct {
	Dir      string        `arg:"dir" validate:"required"`
	Model    string        `arg:"model" validate:"required"`
	Debounce time.Duration `arg:"debounce" validate:"gte=0"`
	Scan     scanFlags
}

func runWatch(ctx context.Context, env *Env, args []string) error {
	var opts watchOptions
	fs := newFlagSet(env, "watch")
	fs.DurationVar(&opts.Debounce, "debounce", env.Config.Watch.Debounce, "quiet time before a file is validated")
	opts.Scan.register(fs, env, true)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 2, 2); err != nil {
		return err
	}
	opts.Dir, opts.Model = pos[0], pos[1]
	if err := check(opts); err != nil {
		return err
	}

	m, err := schema.Lookup(opts.Model)
	if err != nil {
		return err
	}
	w := watch.New(opts.Dir, m, watch.Options{
		Debounce:    opts.Debounce,
		StrictDates: opts.Scan.StrictDates,
		MaxErrors:   opts.Scan.MaxErrors,
		OnResult: func(r watch.Result) {
			switch {
			case r.Err != nil:
				env.printf("%s: error: %v\n", r.File, r.Err)
			case r.Valid:
				env.printf("%s: %d records valid -> %s\n", r.File, r.Summary.Valid, r.Dest)
			default:
				env.printf("%s: %d of %d records invalid -> %s (log: %s)\n",
					r.File, r.Summary.Invalid, r.Summary.Processed, r.Dest, r.ErrorLog)
			}
		},
	}, env.Logger)

	env.printf("Watching %s for %s files. Press Ctrl+C to stop.\n", opts.Dir, m.Name())
	return w.Run(ctx)
}
