package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/JonMunkholm/csvtools/internal/config"
	"github.com/JonMunkholm/csvtools/internal/scan"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

// MaxBatchSize is the BatchWriteItem request limit.
const MaxBatchSize = 25

// Options configure an Importer.
type Options struct {
	Table      string
	BatchSize  int           // clamped to 1..MaxBatchSize
	MaxRetries int           // resends of unprocessed items per batch
	RetryDelay time.Duration // first backoff delay, doubled per retry
}

// OptionsFrom builds Options for table from the Dynamo config section.
func OptionsFrom(table string, cfg config.DynamoConfig) Options {
	return Options{
		Table:      table,
		BatchSize:  cfg.BatchSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	}
}

// Result counts what an import wrote.
type Result struct {
	Written int // items DynamoDB accepted
	Failed  int // items still unprocessed after every retry
	Batches int // BatchWriteItem calls, retries included
	Retries int
	// Replaced counts queued items overwritten by a later record with the
	// same key before their batch was sent.
	Replaced int
}

// Importer buffers items and writes them with BatchWriteItem.
// It is not safe for concurrent use.
type Importer struct {
	client  BatchWriter
	model   *schema.Model
	opts    Options
	logger  *slog.Logger
	pending []types.WriteRequest
	queued  map[string]int // item key -> index in pending
	result  Result

	sleep func(ctx context.Context, d time.Duration) error
}

// NewImporter creates an Importer writing records of m to opts.Table.
func NewImporter(client BatchWriter, m *schema.Model, opts Options, logger *slog.Logger) *Importer {
	if opts.BatchSize <= 0 || opts.BatchSize > MaxBatchSize {
		opts.BatchSize = MaxBatchSize
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		client:  client,
		model:   m,
		opts:    opts,
		logger:  logger.With("table", opts.Table, "model", m.Name()),
		pending: make([]types.WriteRequest, 0, opts.BatchSize),
		queued:  make(map[string]int, opts.BatchSize),
		sleep:   sleepContext,
	}
}

// Add queues one validated record, writing a batch once enough are queued.
// A record whose key is already queued replaces the queued item, so the last
// one wins as with PutItem; BatchWriteItem rejects requests that repeat a key.
func (im *Importer) Add(ctx context.Context, fields []string) error {
	item, err := BuildItem(im.model, fields)
	if err != nil {
		return err
	}
	req := types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
	key := ItemKey(im.model, item)
	if i, ok := im.queued[key]; ok {
		im.pending[i] = req
		im.result.Replaced++
		return nil
	}
	im.queued[key] = len(im.pending)
	im.pending = append(im.pending, req)
	if len(im.pending) < im.opts.BatchSize {
		return nil
	}
	return im.Flush(ctx)
}

// Sink returns a scan.Sink that adds records to im under ctx.
func (im *Importer) Sink(ctx context.Context) scan.Sink {
	return scan.SinkFunc(func(fields []string) error {
		return im.Add(ctx, fields)
	})
}

// Flush writes whatever is queued.
func (im *Importer) Flush(ctx context.Context) error {
	if len(im.pending) == 0 {
		return nil
	}
	batch := im.pending
	im.pending = make([]types.WriteRequest, 0, im.opts.BatchSize)
	clear(im.queued)
	return im.write(ctx, batch)
}

// Result returns the running totals.
func (im *Importer) Result() Result { return im.result }

// write sends batch and resends unprocessed items with exponential backoff.
// Items left after MaxRetries are counted as failed and logged; only a
// request error or cancellation is returned.
func (im *Importer) write(ctx context.Context, batch []types.WriteRequest) error {
	delay := im.opts.RetryDelay
	for attempt := 0; ; attempt++ {
		im.result.Batches++
		out, err := im.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{im.opts.Table: batch},
		})
		if err != nil {
			return fmt.Errorf("batch write to %s: %w", im.opts.Table, err)
		}

		unprocessed := out.UnprocessedItems[im.opts.Table]
		im.result.Written += len(batch) - len(unprocessed)
		if len(unprocessed) == 0 {
			return nil
		}

		if attempt == im.opts.MaxRetries {
			im.result.Failed += len(unprocessed)
			for _, req := range unprocessed {
				if req.PutRequest != nil {
					im.logger.Error("item not written after retries",
						"key", ItemKey(im.model, req.PutRequest.Item),
						"attempts", attempt+1,
					)
				}
			}
			return nil
		}

		im.logger.Debug("retrying unprocessed items",
			"unprocessed", len(unprocessed),
			"attempt", attempt+1,
			"delay", delay,
		)
		if err := im.sleep(ctx, delay); err != nil {
			im.result.Failed += len(unprocessed)
			return err
		}
		im.result.Retries++
		batch = unprocessed
		delay *= 2
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ErrNoTable is returned by Import when no table name is given.
var ErrNoTable = errors.New("dynamodb table name is required")

// Import scans src against the validator's model, writes every valid record
// to DynamoDB and routes invalid ones to h. h.Valid is ignored.
func Import(ctx context.Context, s *scan.Scanner, src scan.Source, im *Importer, h scan.Handlers) (scan.Summary, Result, error) {
	if im.opts.Table == "" {
		return scan.Summary{}, Result{}, ErrNoTable
	}
	h.Valid = im.Sink(ctx)
	sum, err := s.Run(ctx, src, h)
	// Queued items are written even when the scan stopped early.
	flushCtx := ctx
	if ctx.Err() != nil {
		flushCtx = context.WithoutCancel(ctx)
	}
	err = errors.Join(err, im.Flush(flushCtx))
	return sum, im.Result(), err
}
