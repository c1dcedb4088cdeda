package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/ops"
	"github.com/JonMunkholm/csvtools/internal/scan"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

func init() {
	Register(Command{
		Name:    "models",
		Args:    "[model]",
		Summary: "List the registered models, or the columns of one model.",
		Group:   GroupModel,
		Run:     runModels,
	})
	Register(Command{
		Name:    "check_header",
		Args:    "<in> [model]",
		Summary: "Check a file's header against a model, or find the models it matches.",
		Group:   GroupModel,
		Run:     runCheckHeader,
	})
	Register(Command{
		Name:    "validate",
		Args:    "<in> <error_log> <model> [-max-errors n] [-stop-on-max] [-strict-dates]",
		Summary: "Validate every record against a model and write problems to an error log.",
		Group:   GroupModel,
		Run:     runValidate,
	})
	Register(Command{
		Name:    "sanitize",
		Args:    "<in> <out> <model> [-strict-dates]",
		Summary: "Write only the records that pass model validation; the rest go to <out>.sanitization_errors.csv.",
		Group:   GroupModel,
		Run:     runSanitize,
	})
	Register(Command{
		Name:    "dedup_keys",
		Args:    "<in> <out> <model>",
		Summary: "Keep the last record per model key; records without a key go to <out>.rejected.csv.",
		Group:   GroupModel,
		Run:     runDedupKeys,
	})
}

// scanFlags are the validation flags shared by model-aware commands.
type scanFlags struct {
	MaxErrors   int `arg:"max-errors" validate:"gte=0"`
	StopOnMax   bool
	StrictDates bool
}

func (f *scanFlags) register(fs *flag.FlagSet, env *Env, withLimits bool) {
	fs.BoolVar(&f.StrictDates, "strict-dates", false, "reject dates that are not on the calendar")
	if withLimits {
		fs.IntVar(&f.MaxErrors, "max-errors", env.Config.Scan.MaxErrors, "stop recording after n issues (0 = unlimited)")
		fs.BoolVar(&f.StopOnMax, "stop-on-max", false, "stop the scan once max-errors issues are recorded")
	}
}

func (e *Env) scanner(m *schema.Model, f scanFlags) *scan.Scanner {
	return scan.New(
		schema.NewRecordValidator(m, schema.ValidateOptions{StrictDates: f.StrictDates}),
		scan.Options{
			MaxErrors:            f.MaxErrors,
			StopOnMax:            f.StopOnMax,
			ReportInterval:       e.Config.Scan.ReportInterval,
			ContextCheckInterval: e.Config.Scan.ContextCheckInterval,
		},
		e.Logger.With("model", m.Name()),
	)
}

// openChecked opens in and checks its header against m.
func openChecked(in string, m *schema.Model) (*csvio.Reader, []string, error) {
	rd, err := csvio.Open(in, csvio.ReaderOptions{})
	if err != nil {
		return nil, nil, err
	}
	header, err := scan.CheckHeader(rd, m)
	if err != nil {
		rd.Close()
		return nil, nil, err
	}
	return rd, header, nil
}

func runModels(_ context.Context, env *Env, args []string) error {
	fs := newFlagSet(env, "models")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 0, 1); err != nil {
		return err
	}

	if len(pos) == 0 {
		for _, m := range schema.All() {
			env.printf("%-30s %2d columns  keys: %s\n", m.Name(), m.ColumnCount(), strings.Join(m.KeyColumns(), ", "))
		}
		return nil
	}

	m, err := schema.Lookup(pos[0])
	if err != nil {
		return err
	}
	sk, _ := m.SortKey()
	env.printf("Model: %s (%d columns)\n", m.Name(), m.ColumnCount())
	for i, f := range m.Fields() {
		var notes []string
		switch f.Name {
		case m.PartitionKey():
			notes = append(notes, "partition key")
		case sk:
			notes = append(notes, "sort key")
		}
		if f.Nullable {
			notes = append(notes, "nullable")
		}
		note := ""
		if len(notes) > 0 {
			note = " (" + strings.Join(notes, ", ") + ")"
		}
		env.printf("  [%2d] %-16s %s%s\n", i+1, f.Name, f.Type, note)
	}
	env.printf("Header: %s\n", m.HeaderLine())
	return nil
}

type checkHeaderOptions struct {
	Input string `arg:"input" validate:"required"`
	Model string `arg:"model"`
}

func runCheckHeader(_ context.Context, env *Env, args []string) error {
	fs := newFlagSet(env, "check_header")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 1, 2); err != nil {
		return err
	}
	opts := checkHeaderOptions{Input: pos[0]}
	if len(pos) == 2 {
		opts.Model = pos[1]
	}
	if err := check(opts); err != nil {
		return err
	}

	rd, err := csvio.Open(opts.Input, csvio.ReaderOptions{})
	if err != nil {
		return err
	}
	defer rd.Close()
	header, err := rd.Header()
	if err != nil {
		return err
	}
	env.printf("Columns found: %d\n", len(header))

	if dups, err := ops.DuplicateHeaderLines(opts.Input); err == nil && len(dups) > 0 {
		env.printf("Repeated header lines: %s (run clean_headers)\n", joinInts(dups))
	}

	if opts.Model == "" {
		var matches []string
		for _, m := range schema.All() {
			if schema.ValidateHeader(header, m) == nil {
				matches = append(matches, m.Name())
			}
		}
		if len(matches) == 0 {
			return fmt.Errorf("header mismatch: no registered model matches the %d columns of %s", len(header), opts.Input)
		}
		env.printf("Matching models: %s\n", strings.Join(matches, ", "))
		return nil
	}

	m, err := schema.Lookup(opts.Model)
	if err != nil {
		return err
	}
	if err := schema.ValidateHeader(header, m); err != nil {
		var mismatch *schema.HeaderMismatchError
		if errors.As(err, &mismatch) {
			printMismatch(env, mismatch)
		}
		return err
	}
	env.printf("Header matches %s (%d columns, keys: %s)\n", m.Name(), m.ColumnCount(), strings.Join(m.KeyColumns(), ", "))
	return nil
}

func printMismatch(env *Env, e *schema.HeaderMismatchError) {
	if len(e.Missing) > 0 {
		env.printf("Missing:    %s\n", strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		env.printf("Unexpected: %s\n", strings.Join(e.Extra, ", "))
	}
	if len(e.Duplicates) > 0 {
		env.printf("Duplicated: %s\n", strings.Join(e.Duplicates, ", "))
	}
}

type validateOptions struct {
	Input    string `arg:"input" validate:"required"`
	ErrorLog string `arg:"error_log" validate:"required,nefield=Input"`
	Model    string `arg:"model" validate:"required"`
	Scan     scanFlags
}

func runValidate(ctx context.Context, env *Env, args []string) error {
	var opts validateOptions
	fs := newFlagSet(env, "validate")
	opts.Scan.register(fs, env, true)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 3, 3); err != nil {
		return err
	}
	opts.Input, opts.ErrorLog, opts.Model = pos[0], pos[1], pos[2]
	if err := check(opts); err != nil {
		return err
	}

	m, err := schema.Lookup(opts.Model)
	if err != nil {
		return err
	}
	rd, _, err := openChecked(opts.Input, m)
	if err != nil {
		return err
	}
	defer rd.Close()

	issues, err := scan.CreateIssueLog(opts.ErrorLog)
	if err != nil {
		return err
	}
	sum, err := env.scanner(m, opts.Scan).Run(ctx, rd, scan.Handlers{Issues: issues})
	if cerr := issues.Close(); err == nil {
		err = cerr
	}

	env.printf("Model: %s\nInput: %s\n", m.Name(), opts.Input)
	printScanSummary(env.Stdout, sum)
	env.printf("Error log: %s\n", opts.ErrorLog)
	if err == nil && sum.Invalid == 0 {
		env.printf("All records valid for DynamoDB import.\n")
	}
	return err
}

type sanitizeOptions struct {
	Input  string `arg:"input" validate:"required"`
	Output string `arg:"output" validate:"required,nefield=Input"`
	Model  string `arg:"model" validate:"required"`
	Scan   scanFlags
}

// SanitizeRejectLog returns where sanitize writes rejected records for out.
func SanitizeRejectLog(out string) string { return out + ".sanitization_errors.csv" }

func runSanitize(ctx context.Context, env *Env, args []string) error {
	var opts sanitizeOptions
	fs := newFlagSet(env, "sanitize")
	opts.Scan.register(fs, env, false)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 3, 3); err != nil {
		return err
	}
	opts.Input, opts.Output, opts.Model = pos[0], pos[1], pos[2]
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

	out, err := csvio.Create(opts.Output)
	if err != nil {
		return err
	}
	if err := out.Write(header); err != nil {
		out.Close()
		return err
	}
	rejectPath := SanitizeRejectLog(opts.Output)
	rejects, err := scan.CreateRejectLog(rejectPath, header)
	if err != nil {
		out.Close()
		return err
	}

	sum, err := env.scanner(m, opts.Scan).Run(ctx, rd, scan.Handlers{Valid: out, Rejected: rejects})
	err = errors.Join(err, out.Close(), rejects.Close())

	env.printf("Model: %s\n", m.Name())
	printScanSummary(env.Stdout, sum)
	env.printf("Clean output: %s\nRejected records: %s\n", opts.Output, rejectPath)
	return err
}

type dedupKeysOptions struct {
	Input  string `arg:"input" validate:"required"`
	Output string `arg:"output" validate:"required,nefield=Input"`
	Model  string `arg:"model" validate:"required"`
}

// DedupKeysRejectLog returns where dedup_keys writes keyless records for out.
func DedupKeysRejectLog(out string) string { return out + ".rejected.csv" }

func runDedupKeys(ctx context.Context, env *Env, args []string) error {
	fs := newFlagSet(env, "dedup_keys")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 3, 3); err != nil {
		return err
	}
	opts := dedupKeysOptions{Input: pos[0], Output: pos[1], Model: pos[2]}
	if err := check(opts); err != nil {
		return err
	}

	m, err := schema.Lookup(opts.Model)
	if err != nil {
		return err
	}
	rejectPath := DedupKeysRejectLog(opts.Output)
	rejects, err := scan.CreateRejectLog(rejectPath, m.Columns())
	if err != nil {
		return err
	}

	res, err := ops.DedupKeys(ctx, opts.Input, opts.Output, m, rejects)
	err = errors.Join(err, rejects.Close())
	if err != nil {
		return err
	}

	env.printf("Processed:  %d records\n", res.Processed)
	env.printf("Unique:     %d keys (%s)\n", res.Unique, strings.Join(m.KeyColumns(), ", "))
	env.printf("Replaced:   %d earlier duplicates\n", res.Duplicates)
	env.printf("Rejected:   %d records without a usable key -> %s\n", res.Rejected, rejectPath)
	return nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
