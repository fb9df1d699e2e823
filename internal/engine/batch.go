package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/spice-rules/internal/model"
)

// DefaultWorkers is the worker count used when a batch asks for none.
const DefaultWorkers = 4

// BatchOptions tunes ProcessOrdered and ProcessBatchParallel.
type BatchOptions struct {
	// OnProcessed is called once per finished payment, from a worker goroutine.
	OnProcessed func()
	Workers     int
}

type batchItem struct {
	payment model.PaymentInput
	index   int
}

type batchResult struct {
	result model.RuleEngineResult
	index  int
}

// ProcessBatchParallel classifies payments with a pool of workers. The
// returned map is the same ProcessBatch would build, including which payment
// wins when two share a key.
func (e *RuleEngine) ProcessBatchParallel(ctx context.Context, payments []model.PaymentInput, scope string, opts BatchOptions) (map[string]model.RuleEngineResult, error) {
	ordered, err := e.ProcessOrdered(ctx, payments, scope, opts)
	if err != nil {
		return nil, err
	}

	results := make(map[string]model.RuleEngineResult, len(payments))
	for i, p := range payments {
		results[p.BatchKey()] = ordered[i]
	}
	return results, nil
}

// ProcessOrdered classifies payments with a pool of workers and returns one
// result per payment, in input order. Payments sharing an order id keep their
// own results. Cancellation is checked between payments.
func (e *RuleEngine) ProcessOrdered(ctx context.Context, payments []model.PaymentInput, scope string, opts BatchOptions) ([]model.RuleEngineResult, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, len(payments))

	workChan := make(chan batchItem, len(payments))
	for i, p := range payments {
		workChan <- batchItem{index: i, payment: p}
	}
	close(workChan)

	resultsChan := make(chan batchResult, len(payments))

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			e.batchWorker(ctx, scope, workChan, resultsChan, opts.OnProcessed)
		}()
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]model.RuleEngineResult, len(payments))
	done := make([]bool, len(payments))
	for r := range resultsChan {
		results[r.index] = r.result
		done[r.index] = true
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch canceled: %w", err)
	}
	for i, ok := range done {
		if !ok {
			return nil, fmt.Errorf("payment %d was not processed", i)
		}
	}
	return results, nil
}

func (e *RuleEngine) batchWorker(
	ctx context.Context,
	scope string,
	workChan <-chan batchItem,
	resultsChan chan<- batchResult,
	onProcessed func(),
) {
	for item := range workChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		resultsChan <- batchResult{index: item.index, result: e.Process(item.payment, scope)}
		if onProcessed != nil {
			onProcessed()
		}
	}
}
