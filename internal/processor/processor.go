// Package processor runs the term filter over an incoming task and fingerprints the result
package processor

import (
	"context"
	"encoding/json"

	"github.com/UnendingLoop/URLFilter/internal/filter"
	"github.com/UnendingLoop/URLFilter/internal/model"
	"github.com/cespare/xxhash/v2"
)

type Processor struct{}

func (p Processor) ProcessTask(ctx context.Context, task *model.FilterTask) (*model.FilterResult, error) {
	output, err := filter.FilterByTerm(task.Records, task.Term)
	if err != nil {
		return nil, err
	}

	result := model.FilterResult{
		TaskID: task.TaskID,
		Output: output,
	}

	// считаем общий хеш по итоговым записям
	result.HashSumm, err = Fingerprint(ctx, output)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Fingerprint is xxhash64 over the encoded records. It returns 0 if ctx is
// done before all records are hashed.
func Fingerprint(ctx context.Context, records []model.Record) (uint64, error) {
	hs := xxhash.New()
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return 0, nil
		default:
			raw, err := json.Marshal(rec)
			if err != nil {
				return 0, err
			}
			_, _ = hs.Write(raw)
		}
	}
	return hs.Sum64(), nil
}
