package scan

import (
	"log/slog"
	"time"
)

// Progress logs a line every `every` records with throughput so far.
type Progress struct {
	logger *slog.Logger
	every  int
	start  time.Time
	now    func() time.Time
}

// NewProgress returns a reporter. every <= 0 disables periodic lines.
func NewProgress(logger *slog.Logger, every int) *Progress {
	return &Progress{logger: logger, every: every, start: time.Now(), now: time.Now}
}

// Tick is called once per record with the running count and, when known,
// the percentage of input consumed.
func (p *Progress) Tick(processed, percent int) {
	if p.every <= 0 || processed%p.every != 0 {
		return
	}
	args := []any{"processed", processed, "rate_per_sec", p.rate(processed)}
	if percent > 0 {
		args = append(args, "percent", percent)
	}
	p.logger.Info("progress", args...)
}

// Done logs the final count and returns the elapsed time.
func (p *Progress) Done(processed int) time.Duration {
	elapsed := p.now().Sub(p.start)
	p.logger.Info("done",
		"processed", processed,
		"elapsed", elapsed.Round(time.Millisecond).String(),
		"rate_per_sec", p.rate(processed),
	)
	return elapsed
}

func (p *Progress) rate(processed int) int {
	secs := p.now().Sub(p.start).Seconds()
	if secs <= 0 {
		return processed
	}
	return int(float64(processed) / secs)
}
