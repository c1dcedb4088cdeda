package cli

import (
	"context"
	"time"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/ops"
)

func init() {
	for _, c := range []Command{
		{Name: "clean_headers", Args: "<in> <out>", Summary: "Drop repeated header lines, keeping the first.", Run: runCleanHeaders},
		{Name: "check_duplicate_header", Args: "<in>", Summary: "Report the line numbers of repeated header lines.", Run: runCheckDuplicateHeader},
		{Name: "clean_invalid", Args: "<in> <out> <error_log>", Summary: "Drop records whose field count differs from the header's.", Run: runCleanInvalid},
		{Name: "filter", Args: "<in> <out> <column> <value>", Summary: "Keep the records whose column equals value.", Run: runFilter},
		{Name: "count", Args: "<files...>", Summary: "Count data rows per file.", Run: runCount},
		{Name: "count_all", Args: "<file_list>", Summary: "Count data rows of every file named in a list file.", Run: runCountAll},
		{Name: "count_unique", Args: "<file_list>", Summary: "Count distinct data lines across the files of a list file.", Run: runCountUnique},
		{Name: "merge", Args: "<out> <files...> [-dedup]", Summary: "Concatenate files keeping the first header only.", Run: runMerge},
		{Name: "dedup", Args: "<in> <out>", Summary: "Drop repeated records, keeping the first.", Run: runDedup},
		{Name: "split", Args: "<in> <prefix> <rows>", Summary: "Split into <prefix>_001.csv, ... of at most rows records each.", Run: runSplit},
		{Name: "convert_date", Args: "<in> <out> <column>", Summary: "Rewrite one date column as yyyy-MM-ddTHH:mm:ss.", Run: runConvertDate},
		{Name: "convert_dates", Args: "<in> <out>", Summary: "Rewrite every dd/MM/yyyy field as yyyy-MM-dd.", Run: runConvertDates},
		{Name: "sanitize_csv", Args: "<in> <out>", Summary: "Strip a BOM, drop blank lines and terminate the last line.", Run: runSanitizeCSV},
		{Name: "head", Args: "<in> [n]", Summary: "Print the header and the first n records.", Run: runHead},
		{Name: "tail", Args: "<in> [n]", Summary: "Print the last n lines.", Run: runTail},
		{Name: "delete_from_row", Args: "<in> <out> <row>", Summary: "Keep the lines before row, header included.", Run: runDeleteFromRow},
		{Name: "compare", Args: "<a> <b> <n>", Summary: "Compare the headers and the first n lines of two files.", Run: runCompare},
		{Name: "estimate_memory", Args: "<file_list>", Summary: "Estimate the memory an in-memory merge of the listed files needs.", Run: runEstimateMemory},
	} {
		c.Group = GroupPlain
		Register(c)
	}
}

// fixedArgs parses a command that takes exactly n positional arguments and no flags.
func fixedArgs(env *Env, name string, args []string, n int) ([]string, error) {
	pos, err := parseArgs(newFlagSet(env, name), args)
	if err != nil {
		return nil, err
	}
	if err := wantArgs(pos, n, n); err != nil {
		return nil, err
	}
	return pos, nil
}

type fileOptions struct {
	Input  string `arg:"input" validate:"required"`
	Output string `arg:"output" validate:"required,nefield=Input"`
}

// parseFileOptions parses a command that takes just <in> <out>.
func parseFileOptions(env *Env, name string, args []string) (fileOptions, error) {
	pos, err := fixedArgs(env, name, args, 2)
	if err != nil {
		return fileOptions{}, err
	}
	opts := fileOptions{Input: pos[0], Output: pos[1]}
	return opts, check(opts)
}

func (e *Env) printRows(res ops.RowResult, out string, start time.Time) {
	e.printf("Processed: %d records\n", res.Processed)
	e.printf("Written:   %d (%.2f%%)\n", res.Written, percent(res.Written, res.Processed))
	e.printf("Dropped:   %d\n", res.Dropped())
	if res.Skipped > 0 {
		e.printf("Malformed: %d\n", res.Skipped)
	}
	e.printf("Output:    %s\n", out)
	e.printf("Elapsed:   %s\n", time.Since(start).Round(time.Millisecond))
}

func runCleanHeaders(ctx context.Context, env *Env, args []string) error {
	opts, err := parseFileOptions(env, "clean_headers", args)
	if err != nil {
		return err
	}
	res, err := ops.CleanHeaders(ctx, opts.Input, opts.Output)
	if err != nil {
		return err
	}
	env.printf("Lines read: %d\nDuplicate headers removed: %d\nOutput: %s\n", res.Lines, res.Removed, opts.Output)
	return nil
}

func runCheckDuplicateHeader(_ context.Context, env *Env, args []string) error {
	pos, err := fixedArgs(env, "check_duplicate_header", args, 1)
	if err != nil {
		return err
	}
	lines, err := ops.DuplicateHeaderLines(pos[0])
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		env.printf("No duplicate header found.\n")
		return nil
	}
	env.printf("Duplicate header found on %d lines: %s\n", len(lines), joinInts(lines))
	return nil
}

type cleanInvalidOptions struct {
	fileOptions
	ErrorLog string `arg:"error_log" validate:"required,nefield=Input"`
}

func runCleanInvalid(ctx context.Context, env *Env, args []string) error {
	pos, err := fixedArgs(env, "clean_invalid", args, 3)
	if err != nil {
		return err
	}
	opts := cleanInvalidOptions{fileOptions{Input: pos[0], Output: pos[1]}, pos[2]}
	if err := check(opts); err != nil {
		return err
	}
	start := time.Now()
	res, err := ops.CleanInvalid(ctx, opts.Input, opts.Output, opts.ErrorLog)
	if err != nil {
		return err
	}
	env.printRows(res, opts.Output, start)
	env.printf("Error log: %s\n", opts.ErrorLog)
	return nil
}

type filterOptions struct {
	fileOptions
	Column string `arg:"column" validate:"required"`
	Value  string
}

func runFilter(ctx context.Context, env *Env, args []string) error {
	pos, err := fixedArgs(env, "filter", args, 4)
	if err != nil {
		return err
	}
	opts := filterOptions{fileOptions{Input: pos[0], Output: pos[1]}, pos[2], pos[3]}
	if err := check(opts); err != nil {
		return err
	}
	start := time.Now()
	res, err := ops.Filter(ctx, opts.Input, opts.Output, opts.Column, opts.Value)
	if err != nil {
		return err
	}
	env.printRows(res, opts.Output, start)
	return nil
}

type filesOptions struct {
	Files []string `arg:"files" validate:"min=1,dive,required"`
}

func (e *Env) printCounts(counts []ops.FileCount, total int) {
	for _, c := range counts {
		e.printf("%s: %d rows\n", c.Path, c.Rows)
	}
	if len(counts) != 1 {
		e.printf("Total: %d rows in %d files\n", total, len(counts))
	}
}

func runCount(ctx context.Context, env *Env, args []string) error {
	pos, err := parseArgs(newFlagSet(env, "count"), args)
	if err != nil {
		return err
	}
	opts := filesOptions{Files: pos}
	if err := check(opts); err != nil {
		return err
	}
	counts, total, err := ops.CountFiles(ctx, opts.Files)
	env.printCounts(counts, total)
	return err
}

// listArg parses a command that takes one file-list argument.
func listArg(env *Env, name string, args []string) ([]string, error) {
	pos, err := fixedArgs(env, name, args, 1)
	if err != nil {
		return nil, err
	}
	paths, err := csvio.ReadList(pos[0])
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, usageErrorf("file list %s names no files", pos[0])
	}
	return paths, nil
}

func runCountAll(ctx context.Context, env *Env, args []string) error {
	paths, err := listArg(env, "count_all", args)
	if err != nil {
		return err
	}
	counts, total, err := ops.CountFiles(ctx, paths)
	env.printCounts(counts, total)
	return err
}

func runCountUnique(ctx context.Context, env *Env, args []string) error {
	paths, err := listArg(env, "count_unique", args)
	if err != nil {
		return err
	}
	n, err := ops.CountUnique(ctx, paths)
	if err != nil {
		return err
	}
	env.printf("Unique data lines: %d across %d files\n", n, len(paths))
	return nil
}

type mergeOptions struct {
	Output string   `arg:"output" validate:"required"`
	Files  []string `arg:"files" validate:"min=1,dive,required"`
	Dedup  bool
}

func runMerge(ctx context.Context, env *Env, args []string) error {
	var opts mergeOptions
	fs := newFlagSet(env, "merge")
	fs.BoolVar(&opts.Dedup, "dedup", false, "drop data lines already written from an earlier file")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if err := wantArgs(pos, 2, -1); err != nil {
		return err
	}
	opts.Output, opts.Files = pos[0], pos[1:]
	if err := check(opts); err != nil {
		return err
	}
	for _, f := range opts.Files {
		if f == opts.Output {
			return usageErrorf("output %s is also an input", f)
		}
	}

	start := time.Now()
	res, err := ops.Merge(ctx, opts.Output, opts.Files, ops.MergeOptions{Dedup: opts.Dedup})
	if err != nil {
		return err
	}
	env.printf("Merged %d files into %s\n", res.Files, opts.Output)
	env.printf("Lines written: %d\n", res.Written)
	if opts.Dedup {
		env.printf("Duplicates skipped: %d\n", res.Duplicates)
	}
	for _, f := range res.Mismatched {
		env.printf("Warning: header of %s differs from the first file\n", f)
	}
	env.printf("Elapsed: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runDedup(ctx context.Context, env *Env, args []string) error {
	opts, err := parseFileOptions(env, "dedup", args)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := ops.Dedup(ctx, opts.Input, opts.Output)
	if err != nil {
		return err
	}
	env.printRows(res, opts.Output, start)
	return nil
}

type splitOptions struct {
	Input  string `arg:"input" validate:"required"`
	Prefix string `arg:"prefix" validate:"required"`
	Rows   int    `arg:"rows" validate:"gt=0"`
}

func runSplit(ctx context.Context, env *Env, args []string) error {
	pos, err := fixedArgs(env, "split", args, 3)
	if err != nil {
		return err
	}
	rows, err := intArg("rows", pos[2])
	if err != nil {
		return err
	}
	opts := splitOptions{Input: pos[0], Prefix: pos[1], Rows: rows}
	if err := check(opts); err != nil {
		return err
	}
	res, err := ops.Split(ctx, opts.Input, opts.Prefix, opts.Rows)
	if err != nil {
		return err
	}
	env.printf("Records: %d\nChunks:  %d\n", res.Records, len(res.Chunks))
	for _, c := range res.Chunks {
		env.printf("  %s\n", c)
	}
	return nil
}

func (e *Env) printDates(res ops.DateResult, out string) {
	e.printf("Processed: %d records\n", res.Processed)
	e.printf("Converted: %d fields\n", res.Converted)
	e.printf("Written:   %d records\n", res.Written)
	if res.ErrorLog != "" {
		e.printf("Failed:    %d records (see %s)\n", res.Failed, res.ErrorLog)
	}
	e.printf("Output:    %s\n", out)
}

type convertDateOptions struct {
	fileOptions
	Column string `arg:"column" validate:"required"`
}

func runConvertDate(ctx context.Context, env *Env, args []string) error {
	pos, err := fixedArgs(env, "convert_date", args, 3)
	if err != nil {
		return err
	}
	opts := convertDateOptions{fileOptions{Input: pos[0], Output: pos[1]}, pos[2]}
	if err := check(opts); err != nil {
		return err
	}
	res, err := ops.ConvertDate(ctx, opts.Input, opts.Output, opts.Column)
	if err != nil {
		return err
	}
	env.printDates(res, opts.Output)
	return nil
}

func runConvertDates(ctx context.Context, env *Env, args []string) error {
	opts, err := parseFileOptions(env, "convert_dates", args)
	if err != nil {
		return err
	}
	res, err := ops.ConvertDates(ctx, opts.Input, opts.Output)
	if err != nil {
		return err
	}
	env.printDates(res, opts.Output)
	return nil
}

func runSanitizeCSV(ctx context.Context, env *Env, args []string) error {
	opts, err := parseFileOptions(env, "sanitize_csv", args)
	if err != nil {
		return err
	}
	res, err := ops.SanitizeCSV(ctx, opts.Input, opts.Output)
	if err != nil {
		return err
	}
	env.printf("BOM removed:         %t\n", res.BOMRemoved)
	env.printf("Lines in:            %d\n", res.LinesIn)
	env.printf("Empty lines removed: %d\n", res.EmptyRemoved)
	env.printf("Data rows:           %d\n", res.DataRows())
	env.printf("Bytes:               %d -> %d\n", res.BytesIn, res.BytesOut)
	env.printf("Output:              %s\n", opts.Output)
	return nil
}

type previewOptions struct {
	Input string `arg:"input" validate:"required"`
	Rows  int    `arg:"n" validate:"gte=0"`
}

func parsePreview(env *Env, name string, args []string) (previewOptions, error) {
	pos, err := parseArgs(newFlagSet(env, name), args)
	if err != nil {
		return previewOptions{}, err
	}
	if err := wantArgs(pos, 1, 2); err != nil {
		return previewOptions{}, err
	}
	opts := previewOptions{Input: pos[0], Rows: ops.DefaultPreviewRows}
	if len(pos) == 2 {
		if opts.Rows, err = intArg("n", pos[1]); err != nil {
			return opts, err
		}
	}
	return opts, check(opts)
}

func runHead(_ context.Context, env *Env, args []string) error {
	opts, err := parsePreview(env, "head", args)
	if err != nil {
		return err
	}
	_, err = ops.Head(opts.Input, opts.Rows, env.Stdout)
	return err
}

func runTail(_ context.Context, env *Env, args []string) error {
	opts, err := parsePreview(env, "tail", args)
	if err != nil {
		return err
	}
	_, err = ops.Tail(opts.Input, opts.Rows, env.Stdout)
	return err
}

type deleteFromRowOptions struct {
	fileOptions
	Row int `arg:"row" validate:"gte=2"`
}

func runDeleteFromRow(ctx context.Context, env *Env, args []string) error {
	pos, err := fixedArgs(env, "delete_from_row", args, 3)
	if err != nil {
		return err
	}
	row, err := intArg("row", pos[2])
	if err != nil {
		return err
	}
	opts := deleteFromRowOptions{fileOptions{Input: pos[0], Output: pos[1]}, row}
	if err := check(opts); err != nil {
		return err
	}
	start := time.Now()
	res, err := ops.DeleteFromRow(ctx, opts.Input, opts.Output, opts.Row)
	if err != nil {
		return err
	}
	env.printRows(res, opts.Output, start)
	return nil
}

type compareOptions struct {
	Input string `arg:"a" validate:"required"`
	Other string `arg:"b" validate:"required,nefield=Input"`
	Rows  int    `arg:"n" validate:"gt=0"`
}

func runCompare(_ context.Context, env *Env, args []string) error {
	pos, err := fixedArgs(env, "compare", args, 3)
	if err != nil {
		return err
	}
	n, err := intArg("n", pos[2])
	if err != nil {
		return err
	}
	opts := compareOptions{Input: pos[0], Other: pos[1], Rows: n}
	if err := check(opts); err != nil {
		return err
	}
	res, err := ops.Compare(opts.Input, opts.Other, opts.Rows)
	if err != nil {
		return err
	}
	if res.HeaderMatch {
		env.printf("Headers match.\n")
	} else {
		env.printf("Headers differ.\n")
	}
	if len(res.Differences) == 0 {
		env.printf("First %d lines are identical.\n", opts.Rows)
		return nil
	}
	env.printf("Differences on %d of the first %d lines: %s\n", len(res.Differences), opts.Rows, joinInts(res.Differences))
	return nil
}

func runEstimateMemory(_ context.Context, env *Env, args []string) error {
	paths, err := listArg(env, "estimate_memory", args)
	if err != nil {
		return err
	}
	est, err := ops.EstimateMemory(paths)
	if err != nil {
		return err
	}
	for _, f := range est.Files {
		env.printf("%s: %s\n", f.Path, ops.GiB(f.Bytes))
	}
	env.printf("Total size:       %s\n", ops.GiB(est.TotalBytes))
	env.printf("Estimated memory: %s\n", ops.GiB(est.EstimatedBytes))
	if est.NeedsExternalSort() {
		env.printf("Warning: estimate exceeds %s; split the input or use an external sort before merge -dedup.\n",
			ops.GiB(ops.ExternalSortThreshold))
	}
	return nil
}
