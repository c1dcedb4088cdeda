package scan

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

const relacionesCSV = `Cuil,Cuit,FechaIngreso,FechaBaja
20123456789,30711884562,2020-01-01,
20999999999,abc,2020-01-01,2024-13-40
20111111111,30711884562
,30711884562,,
20222222222,30711884562,01/02/2020,
20333333333,30711884562,2021-05-05 10:00:00,2022-01-01
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newScanner(t *testing.T, model string, opts Options, vopts schema.ValidateOptions) *Scanner {
	t.Helper()
	m, err := schema.Lookup(model)
	require.NoError(t, err)
	return New(schema.NewRecordValidator(m, vopts), opts, quietLogger())
}

func openCSV(t *testing.T, content string) *csvio.Reader {
	t.Helper()
	rd := csvio.NewReader(strings.NewReader(content), int64(len(content)), csvio.ReaderOptions{})
	_, err := rd.Header()
	require.NoError(t, err)
	return rd
}

type memSink struct{ rows [][]string }

func (m *memSink) Write(fields []string) error {
	m.rows = append(m.rows, fields)
	return nil
}

type memRejects struct {
	lines   []int
	reasons []string
}

func (m *memRejects) Reject(line int, reason string, _ []string) error {
	m.lines = append(m.lines, line)
	m.reasons = append(m.reasons, reason)
	return nil
}

func TestRun_PartialFailureTolerant(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{}, schema.ValidateOptions{})
	valid := &memSink{}
	rejects := &memRejects{}
	issues := &Collector{}

	sum, err := s.Run(context.Background(), openCSV(t, relacionesCSV), Handlers{
		Valid: valid, Rejected: rejects, Issues: issues,
	})
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Processed)
	assert.Equal(t, 2, sum.Valid)
	assert.Equal(t, 4, sum.Invalid)
	assert.False(t, sum.Truncated)
	assert.Equal(t, sum.Issues, sum.Recorded)
	require.Len(t, valid.rows, 2)
	assert.Equal(t, "20123456789", valid.rows[0][0])
	assert.Equal(t, "20333333333", valid.rows[1][0])
	assert.Equal(t, []int{3, 4, 5, 6}, rejects.lines)

	// Line 3: Cuit invalid; the impossible date has a valid shape.
	assert.Equal(t, Issue{
		Line: 3, Kind: KindInvalidNumber, Column: "Cuit",
		Details: `Cuit: invalid number "abc"`, Key: "{Cuil=20999999999,Cuit=abc}",
	}, issues.Issues[0])

	assert.Equal(t, 1, sum.ByKind[KindColumnCount])
	assert.Equal(t, 1, sum.ByKind[KindMissingValue])
	assert.Equal(t, 1, sum.ByKind[KindInvalidDate])
	assert.Equal(t, 1, sum.ByColumn["Cuit"])
	assert.Equal(t, 1, sum.ByColumn["Cuil"])
	assert.Equal(t, 1, sum.ByColumn["FechaIngreso"])
}

func TestRun_StrictDates(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{}, schema.ValidateOptions{StrictDates: true})
	issues := &Collector{}

	_, err := s.Run(context.Background(), openCSV(t, relacionesCSV), Handlers{Issues: issues})
	require.NoError(t, err)

	var line3 []Kind
	for _, is := range issues.Issues {
		if is.Line == 3 {
			line3 = append(line3, is.Kind)
		}
	}
	assert.Equal(t, []Kind{KindInvalidNumber, KindInvalidDate}, line3)
}

func TestRun_ShortRecordStillGetsKey(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{}, schema.ValidateOptions{})
	issues := &Collector{}

	_, err := s.Run(context.Background(), openCSV(t, "Cuil,Cuit,FechaIngreso,FechaBaja\n20111111111,30711884562\n20111111111\n"), Handlers{Issues: issues})
	require.NoError(t, err)

	require.Len(t, issues.Issues, 3)
	assert.Equal(t, KindColumnCount, issues.Issues[0].Kind)
	assert.Equal(t, "{Cuil=20111111111,Cuit=30711884562}", issues.Issues[0].Key)
	assert.Equal(t, KindColumnCount, issues.Issues[1].Kind)
	assert.Equal(t, schema.PlaceholderKey, issues.Issues[1].Key)
	assert.Equal(t, KindKeyExtraction, issues.Issues[2].Kind)
}

func TestRun_MaxErrors(t *testing.T) {
	t.Run("stop on max", func(t *testing.T) {
		s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{MaxErrors: 2, StopOnMax: true}, schema.ValidateOptions{})
		issues := &Collector{}

		sum, err := s.Run(context.Background(), openCSV(t, relacionesCSV), Handlers{Issues: issues})
		require.NoError(t, err)
		assert.True(t, sum.Truncated)
		assert.True(t, sum.Stopped)
		assert.Len(t, issues.Issues, 2)
		assert.Equal(t, 3, sum.Processed)
	})

	t.Run("keep counting past max", func(t *testing.T) {
		s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{MaxErrors: 2}, schema.ValidateOptions{})
		issues := &Collector{}

		sum, err := s.Run(context.Background(), openCSV(t, relacionesCSV), Handlers{Issues: issues})
		require.NoError(t, err)
		assert.True(t, sum.Truncated)
		assert.False(t, sum.Stopped)
		assert.Len(t, issues.Issues, 2)
		assert.Equal(t, 2, sum.Recorded)
		assert.Greater(t, sum.Issues, 2)
		assert.Equal(t, 6, sum.Processed)
	})
}

func TestRun_CapMarksTruncated(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{MaxErrors: 1}, schema.ValidateOptions{})
	issues := &Collector{}
	input := "Cuil,Cuit,FechaIngreso,FechaBaja\n" +
		"a,30711884562,,\n" +
		"b,30711884562,,\n" +
		"c,30711884562,,\n"

	sum, err := s.Run(context.Background(), openCSV(t, input), Handlers{Issues: issues})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Issues)
	assert.Equal(t, 1, sum.Recorded)
	assert.Len(t, issues.Issues, 1)
	assert.True(t, sum.Truncated)
	assert.False(t, sum.Stopped)
}

func TestRun_UnderCapNotTruncated(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{MaxErrors: 10}, schema.ValidateOptions{})

	sum, err := s.Run(context.Background(), openCSV(t, "Cuil,Cuit,FechaIngreso,FechaBaja\na,30711884562,,\n"), Handlers{Issues: &Collector{}})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Recorded)
	assert.False(t, sum.Truncated)
}

func TestRun_ParseErrorsAreRecorded(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadores, Options{}, schema.ValidateOptions{})
	input := "Cuit,RazonSocial,Domicilio,CodPostal,Localidad,NombreProvincia,Telefono\n30711884562,AC\"ME,,,,,\n30711884563,ACME,,,,,\n"
	rd := csvio.NewReader(strings.NewReader(input), 0, csvio.ReaderOptions{Strict: true})
	issues := &Collector{}

	sum, err := s.Run(context.Background(), rd, Handlers{Issues: issues})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 1, sum.Valid)
	require.Len(t, issues.Issues, 1)
	assert.Equal(t, KindParse, issues.Issues[0].Kind)
	assert.Equal(t, 2, issues.Issues[0].Line)
	assert.Equal(t, schema.PlaceholderKey, issues.Issues[0].Key)
}

func TestRun_Idempotent(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{}, schema.ValidateOptions{})

	run := func() (Summary, []Issue) {
		issues := &Collector{}
		sum, err := s.Run(context.Background(), openCSV(t, relacionesCSV), Handlers{Issues: issues})
		require.NoError(t, err)
		sum.Elapsed = 0
		return sum, issues.Issues
	}

	sum1, issues1 := run()
	sum2, issues2 := run()
	assert.Equal(t, sum1, sum2)
	assert.Equal(t, issues1, issues2)
}

func TestRun_Cancelled(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{ContextCheckInterval: 1}, schema.ValidateOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, openCSV(t, relacionesCSV), Handlers{})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingSink struct{}

func (failingSink) Write([]string) error { return errors.New("disk full") }

func TestRun_SinkErrorStopsScan(t *testing.T) {
	s := newScanner(t, schema.SiisaEmpleadoresRelaciones, Options{}, schema.ValidateOptions{})

	sum, err := s.Run(context.Background(), openCSV(t, relacionesCSV), Handlers{Valid: failingSink{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, sum.Processed)
}

func TestIssueLog(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewIssueLog(&buf)
	require.NoError(t, err)

	require.NoError(t, log.Report(Issue{Line: 7, Kind: KindInvalidNumber, Details: `Cuit: invalid number "1,234"`, Key: "{Cuit=1,234}"}))
	require.NoError(t, log.Close())

	assert.Equal(t, "Line,ErrorType,Details,DynamoDbKey\n7,InvalidNumber,\"Cuit: invalid number \"\"1,234\"\"\",\"{Cuit=1,234}\"\n", buf.String())
	assert.Equal(t, 1, log.Count())
}

func TestIssuesFor_FieldKinds(t *testing.T) {
	m, err := schema.Lookup(schema.SiisaEmpleadoresRelaciones)
	require.NoError(t, err)
	out := schema.NewRecordValidator(m, schema.ValidateOptions{}).Validate([]string{" ", "abc", "01/02/2020", ""})

	issues := IssuesFor(4, out)
	require.Len(t, issues, 3)
	assert.Equal(t, KindMissingValue, issues[0].Kind)
	assert.Equal(t, "Cuil", issues[0].Column)
	assert.Equal(t, KindInvalidNumber, issues[1].Kind)
	assert.Equal(t, KindInvalidDate, issues[2].Kind)

	// Kinds follow the reason, not the column type.
	assert.Equal(t, KindMissingValue, fieldKind(&schema.FieldError{Column: "FechaIngreso", Type: schema.FieldDate, Reason: schema.ReasonEmpty}))
	assert.Equal(t, KindInvalidDate, fieldKind(&schema.FieldError{Column: "FechaIngreso", Type: schema.FieldDate, Reason: schema.ReasonInvalidDate}))
}

func TestSummary_ColumnCounts(t *testing.T) {
	sum := Summary{ByColumn: map[string]int{"Cuit": 2, "Cuil": 5, "FechaBaja": 2}}
	assert.Equal(t, []string{"Cuil: 5", "Cuit: 2", "FechaBaja: 2"}, sum.ColumnCounts())
}

func TestCheckHeader(t *testing.T) {
	m, err := schema.Lookup(schema.SiisaEmpleadoresRelaciones)
	require.NoError(t, err)

	rd := csvio.NewReader(strings.NewReader("Cuil,CUIT,FechaIngreso,FechaBaja\n"), 0, csvio.ReaderOptions{})
	_, err = CheckHeader(rd, m)
	assert.ErrorIs(t, err, ErrHeader)

	var hm *schema.HeaderMismatchError
	require.ErrorAs(t, err, &hm)
	assert.Equal(t, []string{"Cuit"}, hm.Missing)
}
