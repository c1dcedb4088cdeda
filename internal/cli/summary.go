package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/csvtools/internal/scan"
)

// percent returns part/total as a percentage, 0 when total is 0.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

// printScanSummary writes the result block shared by the model-aware commands.
func printScanSummary(w io.Writer, sum scan.Summary) {
	fmt.Fprintf(w, "Processed: %d records\n", sum.Processed)
	fmt.Fprintf(w, "Valid:     %d (%.2f%%)\n", sum.Valid, percent(sum.Valid, sum.Processed))
	fmt.Fprintf(w, "Invalid:   %d (%.2f%%)\n", sum.Invalid, percent(sum.Invalid, sum.Processed))
	if sum.Issues > 0 {
		fmt.Fprintf(w, "Issues:    %d (%d recorded)\n", sum.Issues, sum.Recorded)
		fmt.Fprintf(w, "By type:   %s\n", strings.Join(kindCounts(sum.ByKind), ", "))
		if cols := sum.ColumnCounts(); len(cols) > 0 {
			fmt.Fprintf(w, "By column: %s\n", strings.Join(cols, ", "))
		}
	}
	switch {
	case sum.Stopped:
		fmt.Fprintln(w, "Stopped early: error limit reached")
	case sum.Truncated:
		fmt.Fprintf(w, "Error log capped at %d issues\n", sum.Recorded)
	}
	fmt.Fprintf(w, "Elapsed:   %s\n", sum.Elapsed.Round(time.Millisecond))
}

func kindCounts(byKind map[scan.Kind]int) []string {
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = fmt.Sprintf("%s=%d", k, byKind[scan.Kind(k)])
	}
	return out
}
