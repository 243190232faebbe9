package collector_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UnendingLoop/URLFilter/internal/collector"
	"github.com/UnendingLoop/URLFilter/internal/model"
	"github.com/UnendingLoop/URLFilter/internal/processor"
	"github.com/stretchr/testify/require"
)

func newTask(t *testing.T, id, term string, records []model.Record) *model.CLITask {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return &model.CLITask{
		Task:      model.FilterTask{TaskID: id, Term: term, Records: records},
		CTX:       ctx,
		CancelCTX: cancel,
	}
}

func result(id string, hash uint64, recs ...model.Record) model.TaskOutcome {
	return model.TaskOutcome{TaskID: id, Result: &model.FilterResult{TaskID: id, HashSumm: hash, Output: recs}}
}

func TestCollectResults(t *testing.T) {
	rec1 := model.Record{ID: 1, URL: "https://www.url1.dev"}
	rec2 := model.Record{ID: 2, URL: "https://www.link2.dev"}
	bad := model.Record{ID: 666, URL: "https://www.evil.dev"}

	cases := []struct {
		name      string
		ctx       func() (context.Context, context.CancelFunc)
		outcomes  []model.TaskOutcome
		producers int
		quorum    int
		wantErr   string
		wantRes   [][]model.Record
	}{
		{
			name: "Negative - cancelled ctx",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			producers: 1,
			quorum:    1,
			wantErr:   "exceeded or cancelled",
		},
		{
			name: "Positive - results come back in task order",
			outcomes: []model.TaskOutcome{
				result("task2", 200, rec2),
				result("unknown", 1),
				result("task1", 100, rec1),
			},
			producers: 1,
			quorum:    1,
			wantRes:   [][]model.Record{{rec1}, {rec2}},
		},
		{
			name: "Negative - task failed",
			outcomes: []model.TaskOutcome{
				result("task1", 100, rec1),
				{TaskID: "task2", Err: errors.New("inputArr cannot be empty")},
			},
			producers: 1,
			quorum:    1,
			wantErr:   "inputArr cannot be empty",
		},
		{
			name: "Negative - channel closed early",
			outcomes: []model.TaskOutcome{
				result("task1", 100, rec1),
			},
			producers: 1,
			quorum:    1,
			wantErr:   "before all tasks finished",
		},
		{
			name: "Positive - reached quorum despite a dissenting producer",
			outcomes: []model.TaskOutcome{
				result("task1", 999, bad),
				result("task1", 100, rec1),
				result("task2", 200, rec2),
				result("task1", 100, rec1),
				result("task2", 200, rec2),
			},
			producers: 3,
			quorum:    2,
			wantRes:   [][]model.Record{{rec1}, {rec2}},
		},
		{
			name: "Positive - reached quorum despite a failed producer",
			outcomes: []model.TaskOutcome{
				{TaskID: "task1", Err: errors.New("connection refused")},
				result("task1", 100, rec1),
				result("task2", 200, rec2),
				result("task1", 100, rec1),
				result("task2", 200, rec2),
			},
			producers: 3,
			quorum:    2,
			wantRes:   [][]model.Record{{rec1}, {rec2}},
		},
		{
			name: "Negative - producers disagree",
			outcomes: []model.TaskOutcome{
				result("task1", 100, rec1),
				result("task1", 999, bad),
				result("task2", 200, rec2),
				result("task2", 200, rec2),
			},
			producers: 2,
			quorum:    2,
			wantErr:   "producers disagree",
		},
		{
			name: "Negative - too many producers failed",
			outcomes: []model.TaskOutcome{
				result("task1", 100, rec1),
				result("task1", 100, rec1),
				{TaskID: "task2", Err: errors.New("connection refused")},
				{TaskID: "task2", Err: errors.New("searchTerm cannot be empty")},
			},
			producers: 3,
			quorum:    2,
			wantErr:   "searchTerm cannot be empty",
		},
		{
			name:      "Negative - unreachable quorum",
			producers: 2,
			quorum:    3,
			wantErr:   "not reachable",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			tasks := []*model.CLITask{newTask(t, "task1", "url", nil), newTask(t, "task2", "link", nil)}
			ch := make(chan model.TaskOutcome)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if tt.ctx != nil {
				cancel()
				ctx, cancel = tt.ctx()
			}
			defer cancel()

			// без результатов канал остаётся открытым - сработать должна только отмена контекста
			if tt.outcomes != nil {
				go func() {
					for _, v := range tt.outcomes {
						select {
						case ch <- v:
						case <-ctx.Done():
							return
						}
					}
					close(ch)
				}()
			}

			res, err := collector.CollectResults(ctx, ch, tasks, tt.producers, tt.quorum)

			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.ErrorContains(t, err, tt.wantErr)
			}
			require.Equal(t, tt.wantRes, res)
		})
	}
}

func TestCollectResultsCancelsDecidedTask(t *testing.T) {
	rec1 := model.Record{ID: 1, URL: "https://www.url1.dev"}
	tasks := []*model.CLITask{newTask(t, "task1", "url", nil)}
	ch := make(chan model.TaskOutcome, 2)
	ch <- result("task1", 100, rec1)
	ch <- result("task1", 100, rec1)

	res, err := collector.CollectResults(context.Background(), ch, tasks, 3, 2)

	require.NoError(t, err)
	require.Equal(t, [][]model.Record{{rec1}}, res)
	require.ErrorIs(t, tasks[0].CTX.Err(), context.Canceled, "requests still running for a decided task must be cancelled")
}

type countingProcessor struct {
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	inner    processor.Processor
}

func (c *countingProcessor) ProcessTask(ctx context.Context, task *model.FilterTask) (*model.FilterResult, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		old := c.maxSeen.Load()
		if n <= old || c.maxSeen.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return c.inner.ProcessTask(ctx, task)
}

// lyingProcessor answers every task with a made-up record
type lyingProcessor struct{}

func (lyingProcessor) ProcessTask(ctx context.Context, task *model.FilterTask) (*model.FilterResult, error) {
	return &model.FilterResult{TaskID: task.TaskID, HashSumm: 42, Output: []model.Record{{ID: 0, URL: "https://fake.dev"}}}, nil
}

func testRecords() []model.Record {
	return []model.Record{
		{ID: 1, URL: "https://www.url1.dev"},
		{ID: 2, URL: "https://www.url2.dev"},
		{ID: 3, URL: "https://www.link3.dev"},
	}
}

func TestDispatchAndCollect(t *testing.T) {
	records := testRecords()
	tasks := []*model.CLITask{
		newTask(t, "a", "link", records),
		newTask(t, "b", "url", records),
		newTask(t, "c", "LINK", records),
		newTask(t, "d", "nothing", records),
	}
	proc := &countingProcessor{}

	ch := collector.Dispatch([]collector.TaskProcessor{proc}, tasks, 2)
	res, err := collector.CollectResults(context.Background(), ch, tasks, 1, 1)

	require.NoError(t, err)
	require.Equal(t, [][]model.Record{
		{records[2]},
		{records[0], records[1]},
		{records[2]},
		{},
	}, res)
	require.LessOrEqual(t, proc.maxSeen.Load(), int64(2), "worker limit exceeded")
}

func TestDispatchQuorumOutvotesLiar(t *testing.T) {
	records := testRecords()
	tasks := []*model.CLITask{newTask(t, "a", "link", records), newTask(t, "b", "url", records)}
	procs := []collector.TaskProcessor{lyingProcessor{}, processor.Processor{}, processor.Processor{}}

	ch := collector.Dispatch(procs, tasks, 3)
	res, err := collector.CollectResults(context.Background(), ch, tasks, len(procs), 2)

	require.NoError(t, err)
	require.Equal(t, [][]model.Record{{records[2]}, {records[0], records[1]}}, res)
}

func TestDispatchReportsValidationErrors(t *testing.T) {
	tasks := []*model.CLITask{
		newTask(t, "a", "", []model.Record{{ID: 1, URL: "https://www.url1.dev"}}),
	}

	ch := collector.Dispatch([]collector.TaskProcessor{processor.Processor{}}, tasks, 0)
	res, err := collector.CollectResults(context.Background(), ch, tasks, 1, 1)

	require.ErrorContains(t, err, "searchTerm cannot be empty")
	require.Nil(t, res)
}
