package schema

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"unknown model", &NotFoundError{Name: "x"}, "SCH001"},
		{"wrapped unknown model", fmt.Errorf("validate: %w", &NotFoundError{Name: "x"}), "SCH001"},
		{"header mismatch", &HeaderMismatchError{Missing: []string{"Cuit"}}, "SCH002"},
		{"column count", &ColumnCountError{Expected: 4, Actual: 3}, "ROW001"},
		{"invalid number", &FieldError{Column: "Cuit", Type: FieldNumber, Value: "1,234"}, "ROW002"},
		{"invalid date", &FieldError{Column: "FechaBaja", Type: FieldDate, Value: "31/12/2024"}, "ROW003"},
		{"empty number", &FieldError{Column: "Cuit", Type: FieldNumber, Value: ""}, "ROW004"},
		{"extraction", &ExtractionError{Need: 2, Have: 1}, "ROW005"},
		{"file not found", errors.New("open x.csv: no such file or directory"), "FILE001"},
		{"permission", errors.New("open out.csv: permission denied"), "FILE004"},
		{"throttled", errors.New("ProvisionedThroughputExceededException: slow down"), "AWS001"},
		{"db refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), "DB001"},
		{"cancelled", fmt.Errorf("scan: %w", context.Canceled), "RUN001"},
		{"unknown error", errors.New("something odd"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.err != nil {
				assert.NotEmpty(t, got.Message)
				assert.NotEmpty(t, got.Action)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	assert.Equal(t, "", FormatUserError(nil))
	assert.Equal(t, "The model name is not registered (SCH001)", FormatUserError(&NotFoundError{Name: "x"}))
}
