package ops

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvtools/internal/schema"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCleanHeaders(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "a,b\n1,2\na,b\n3,4\na,b\n")
	out := filepath.Join(dir, "out.csv")

	res, err := CleanHeaders(context.Background(), in, out)
	require.NoError(t, err)

	assert.Equal(t, "a,b\n1,2\n3,4\n", readFile(t, out))
	assert.Equal(t, 5, res.Lines)
	assert.Equal(t, 2, res.Removed)
}

func TestDuplicateHeaderLines(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "a,b\n1,2\na,b\n3,4\n a,b\na,b\n")

	lines, err := DuplicateHeaderLines(in)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6}, lines)

	clean := writeFile(t, dir, "clean.csv", "a,b\n1,2\n")
	lines, err = DuplicateHeaderLines(clean)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestFilter(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "id,status\n1,ok\n2,bad\n3,ok\n4\n")
	out := filepath.Join(dir, "out.csv")

	res, err := Filter(context.Background(), in, out, "status", "ok")
	require.NoError(t, err)

	assert.Equal(t, "id,status\n1,ok\n3,ok\n", readFile(t, out))
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.Written)

	_, err = Filter(context.Background(), in, out, "missing", "x")
	assert.ErrorContains(t, err, `column "missing" not found`)
}

func TestCleanInvalid(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "a,b,c\n1,2,3\n1,2\n4,5,6\n1,2,3,4\n")
	out := filepath.Join(dir, "out.csv")
	errLog := filepath.Join(dir, "errors.csv")

	res, err := CleanInvalid(context.Background(), in, out, errLog)
	require.NoError(t, err)

	assert.Equal(t, "a,b,c\n1,2,3\n4,5,6\n", readFile(t, out))
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 2, res.Dropped())
	assert.Equal(t,
		"Line,ErrorType,Details,DynamoDbKey\n"+
			"3,ColumnCount,\"expected 3 columns, got 2\",INVALID_KEY\n"+
			"5,ColumnCount,\"expected 3 columns, got 4\",INVALID_KEY\n",
		readFile(t, errLog))
}

func TestDedup(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "a,b\n1,2\n1,2\n2,1\n\"1,2\",\n1,2\n")
	out := filepath.Join(dir, "out.csv")

	res, err := Dedup(context.Background(), in, out)
	require.NoError(t, err)

	assert.Equal(t, "a,b\n1,2\n2,1\n\"1,2\",\n", readFile(t, out))
	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 3, res.Written)
}

func TestDeleteFromRow(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "a\nr2\nr3\nr4\nr5\n")
	out := filepath.Join(dir, "out.csv")

	res, err := DeleteFromRow(context.Background(), in, out, 4)
	require.NoError(t, err)
	assert.Equal(t, "a\nr2\nr3\n", readFile(t, out))
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.Written)

	res, err = DeleteFromRow(context.Background(), in, out, 100)
	require.NoError(t, err)
	assert.Equal(t, "a\nr2\nr3\nr4\nr5\n", readFile(t, out))
	assert.Equal(t, 0, res.Dropped())

	_, err = DeleteFromRow(context.Background(), in, out, 1)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "h\n1\n2\n3\n4\n5\n")
	prefix := filepath.Join(dir, "part")

	res, err := Split(context.Background(), in, prefix, 2)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Records)
	require.Len(t, res.Chunks, 3)
	assert.Equal(t, prefix+"_001.csv", res.Chunks[0])
	assert.Equal(t, "h\n1\n2\n", readFile(t, res.Chunks[0]))
	assert.Equal(t, "h\n3\n4\n", readFile(t, res.Chunks[1]))
	assert.Equal(t, "h\n5\n", readFile(t, res.Chunks[2]))

	t.Run("exact multiple leaves no empty chunk", func(t *testing.T) {
		in := writeFile(t, dir, "even.csv", "h\n1\n2\n3\n4\n")
		res, err := Split(context.Background(), in, filepath.Join(dir, "even"), 2)
		require.NoError(t, err)
		assert.Len(t, res.Chunks, 2)
	})

	t.Run("header only input", func(t *testing.T) {
		in := writeFile(t, dir, "empty.csv", "h\n")
		res, err := Split(context.Background(), in, filepath.Join(dir, "empty"), 2)
		require.NoError(t, err)
		require.Len(t, res.Chunks, 1)
		assert.Equal(t, "h\n", readFile(t, res.Chunks[0]))
	})

	_, err = Split(context.Background(), in, prefix, 0)
	assert.Error(t, err)
}

func TestCounts(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "h\n1\n2\n3\n")
	b := writeFile(t, dir, "b.csv", "h\n3\n4\n")
	empty := writeFile(t, dir, "empty.csv", "")

	n, err := CountRows(a)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = CountRows(empty)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	counts, total, err := CountFiles(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []FileCount{{Path: a, Rows: 3}, {Path: b, Rows: 2}}, counts)
	assert.Equal(t, 5, total)

	unique, err := CountUnique(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, 4, unique)

	_, _, err = CountFiles(context.Background(), []string{filepath.Join(dir, "nope.csv")})
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "h\n1\n2\n")
	b := writeFile(t, dir, "b.csv", "h\n2\n3\n")
	c := writeFile(t, dir, "c.csv", "other\n4\n")
	out := filepath.Join(dir, "out.csv")

	res, err := Merge(context.Background(), out, []string{a, b}, MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "h\n1\n2\n2\n3\n", readFile(t, out))
	assert.Equal(t, 4, res.Written)
	assert.Equal(t, 2, res.Files)

	res, err = Merge(context.Background(), out, []string{a, b, c}, MergeOptions{Dedup: true})
	require.NoError(t, err)
	assert.Equal(t, "h\n1\n2\n3\n4\n", readFile(t, out))
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, []string{c}, res.Mismatched)

	_, err = Merge(context.Background(), out, nil, MergeOptions{})
	assert.Error(t, err)
}

func TestEstimateMemory(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", strings.Repeat("x", 100))
	b := writeFile(t, dir, "b.csv", strings.Repeat("x", 300))

	est, err := EstimateMemory([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, int64(400), est.TotalBytes)
	assert.Equal(t, int64(600), est.EstimatedBytes)
	assert.False(t, est.NeedsExternalSort())

	assert.True(t, MemoryEstimate{EstimatedBytes: ExternalSortThreshold + 1}.NeedsExternalSort())
	assert.Equal(t, "1.50 GB", GiB(3<<29))
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-05T10:11:12", "2024-03-05T10:11:12"},
		{"2024-03-05T10:11", "2024-03-05T10:11:00"},
		{"2024-03-05T10:11:12-03:00", "2024-03-05T10:11:12"},
		{"2024-03-05 10:11:12", "2024-03-05T10:11:12"},
		{"2024-03-05", "2024-03-05T00:00:00"},
		{"05/03/2024 10:11:12", "2024-03-05T10:11:12"},
		{"5/3/2024 10:11", "2024-03-05T10:11:00"},
		{"31/12/2024", "2024-12-31T00:00:00"},
		{"12/31/2024 11:59:59 PM", "2024-12-31T23:59:59"},
		{"12/31/2024 23:59:59", "2024-12-31T23:59:59"},
		{" 2024-03-05 ", "2024-03-05T00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToISODateTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"yesterday", "2024-13-01", "32/01/2024", "2024/03/05"} {
		_, err := ToISODateTime(bad)
		assert.Error(t, err, bad)
	}
}

func TestConvertDate(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "id,fecha\n1,31/12/2024 10:00\n2,\n3,nope\n4, 2024-01-02 \n")
	out := filepath.Join(dir, "out.csv")

	res, err := ConvertDate(context.Background(), in, out, "fecha")
	require.NoError(t, err)

	assert.Equal(t, "id,fecha\n1,2024-12-31T10:00:00\n2,\n4,2024-01-02T00:00:00\n", readFile(t, out))
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.Converted)
	assert.Equal(t, 3, res.Written)
	assert.Equal(t, 1, res.Failed)

	log := readFile(t, ConvertDateErrorLog(out))
	assert.Contains(t, log, `[LINE 4] DATE_CONVERSION_ERROR | Original="nope"`)
	assert.True(t, strings.HasPrefix(log, "# Date conversion error log\n"))
}

func TestDayFirstToISO(t *testing.T) {
	got, ok := DayFirstToISO("05/03/2024")
	assert.True(t, ok)
	assert.Equal(t, "2024-03-05", got)

	for _, s := range []string{"31/02/2024", "5/3/2024", "2024-03-05", "05-03-2024", "abc"} {
		_, ok := DayFirstToISO(s)
		assert.False(t, ok, s)
	}
}

func TestConvertDates(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "a,b,c\n01/02/2024,x,31/12/1999\n2024-01-01,31/02/2024,\n")
	out := filepath.Join(dir, "out.csv")

	res, err := ConvertDates(context.Background(), in, out)
	require.NoError(t, err)

	assert.Equal(t, "a,b,c\n2024-02-01,x,1999-12-31\n2024-01-01,31/02/2024,\n", readFile(t, out))
	assert.Equal(t, 2, res.Converted)
	assert.Equal(t, 2, res.Written)
}

func TestSanitizeCSV(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "\xEF\xBB\xBFa,b\r\n1,2\r\n\r\n,,\n , \n3,4")
	out := filepath.Join(dir, "out.csv")

	res, err := SanitizeCSV(context.Background(), in, out)
	require.NoError(t, err)

	assert.Equal(t, "a,b\n1,2\n3,4\n", readFile(t, out))
	assert.True(t, res.BOMRemoved)
	assert.Equal(t, 6, res.LinesIn)
	assert.Equal(t, 3, res.LinesOut)
	assert.Equal(t, 3, res.EmptyRemoved)
	assert.Equal(t, 2, res.DataRows())
	assert.Equal(t, int64(12), res.BytesOut)

	again := filepath.Join(dir, "again.csv")
	res, err = SanitizeCSV(context.Background(), out, again)
	require.NoError(t, err)
	assert.False(t, res.BOMRemoved)
	assert.Equal(t, readFile(t, out), readFile(t, again))
}

func TestHeadTail(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "h\n1\n2\n3\n4\n")

	var buf bytes.Buffer
	n, err := Head(in, 2, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "h\n1\n2\n", buf.String())

	buf.Reset()
	n, err = Tail(in, 3, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "h\n2\n3\n4\n", buf.String())

	buf.Reset()
	n, err = Tail(in, 10, &buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "h\n1\n2\n3\n4\n", buf.String())

	buf.Reset()
	n, err = Head(in, 0, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, "h\n", buf.String())
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "h\n1\n2\n3\n")
	b := writeFile(t, dir, "b.csv", "h\n1\nX\n")

	res, err := Compare(a, b, 3)
	require.NoError(t, err)
	assert.True(t, res.HeaderMatch)
	assert.Equal(t, []int{3, 4}, res.Differences)

	c := writeFile(t, dir, "c.csv", "H\n1\n")
	res, err = Compare(a, c, 1)
	require.NoError(t, err)
	assert.False(t, res.HeaderMatch)
	assert.Empty(t, res.Differences)
}

type rejectRecorder struct {
	lines   []int
	reasons []string
}

func (r *rejectRecorder) Reject(line int, reason string, _ []string) error {
	r.lines = append(r.lines, line)
	r.reasons = append(r.reasons, reason)
	return nil
}

func TestDedupKeys(t *testing.T) {
	m, err := schema.Lookup(schema.SiisaEmpleadoresRelaciones)
	require.NoError(t, err)

	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "Cuil,Cuit,FechaIngreso,FechaBaja\n"+
		"1,10,2020-01-01,\n"+
		"2,10,2020-01-01,\n"+
		"1,10,2021-01-01,2022-01-01\n"+
		",10,2020-01-01,\n"+
		"3\n"+
		"1,11,2020-01-01,\n")
	out := filepath.Join(dir, "out.csv")
	rejects := &rejectRecorder{}

	res, err := DedupKeys(context.Background(), in, out, m, rejects)
	require.NoError(t, err)

	assert.Equal(t, "Cuil,Cuit,FechaIngreso,FechaBaja\n"+
		"1,10,2021-01-01,2022-01-01\n"+
		"2,10,2020-01-01,\n"+
		"1,11,2020-01-01,\n", readFile(t, out))
	assert.Equal(t, KeyDedupResult{Processed: 6, Unique: 3, Duplicates: 1, Rejected: 2}, res)
	assert.Equal(t, []int{5, 6}, rejects.lines)
	assert.Equal(t, "key column Cuil is empty", rejects.reasons[0])
	assert.Contains(t, rejects.reasons[1], "cannot extract key")
}

func TestDedupKeys_HeaderOrder(t *testing.T) {
	m, err := schema.Lookup(schema.SiisaEmpleadores)
	require.NoError(t, err)

	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "RazonSocial,Cuit\nA,1\nB,1\n")
	out := filepath.Join(dir, "out.csv")

	res, err := DedupKeys(context.Background(), in, out, m, nil)
	require.NoError(t, err)
	assert.Equal(t, "RazonSocial,Cuit\nB,1\n", readFile(t, out))
	assert.Equal(t, 1, res.Unique)

	noKey := writeFile(t, dir, "nokey.csv", "RazonSocial\nA\n")
	_, err = DedupKeys(context.Background(), noKey, out, m, nil)
	assert.ErrorContains(t, err, `column "Cuit" not found`)
}

func TestCancelledContext(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.csv", "h\n1\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dedup(ctx, in, filepath.Join(dir, "out.csv"))
	assert.ErrorIs(t, err, context.Canceled)
}
