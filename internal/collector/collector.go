// Package collector runs filter tasks on one or more producers concurrently,
// takes a quorum vote over the result hashes and gathers results in task order
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/UnendingLoop/URLFilter/internal/model"
)

type TaskProcessor interface {
	ProcessTask(ctx context.Context, task *model.FilterTask) (*model.FilterResult, error)
}

type job struct {
	task *model.CLITask
	proc TaskProcessor
}

// Dispatch gives every task to every producer, running at most workers jobs
// at a time. The returned channel is closed once every job has reported.
func Dispatch(procs []TaskProcessor, tasks []*model.CLITask, workers int) <-chan model.TaskOutcome {
	if workers <= 0 {
		workers = 1
	}

	queue := make(chan job)
	out := make(chan model.TaskOutcome, len(tasks)*len(procs))

	wg := sync.WaitGroup{}
	for range workers {
		wg.Go(func() {
			for j := range queue {
				outcome := model.TaskOutcome{TaskID: j.task.Task.TaskID, Producer: producerName(j.proc)}
				// задача уже решена кворумом - не тратим время
				if err := j.task.CTX.Err(); err != nil {
					outcome.Err = err
					out <- outcome
					continue
				}

				outcome.Result, outcome.Err = j.proc.ProcessTask(j.task.CTX, &j.task.Task)
				if outcome.Err == nil && j.task.CTX.Err() != nil {
					outcome.Result, outcome.Err = nil, j.task.CTX.Err()
				}
				out <- outcome
			}
		})
	}

	go func() {
		for _, t := range tasks {
			for _, p := range procs {
				queue <- job{task: t, proc: p}
			}
		}
		close(queue)
		wg.Wait()
		close(out)
	}()

	return out
}

type taskTotals struct {
	votes int
	data  []model.Record
}

type taskState struct {
	task      *model.CLITask
	responses int
	maxVotes  int
	votes     map[uint64]*taskTotals
	errs      []error
	done      bool
}

// CollectResults accepts a task result once quorum producers reported the same
// hash. A task fails when quorum can no longer be reached by the producers left.
func CollectResults(ctx context.Context, ch <-chan model.TaskOutcome, tasks []*model.CLITask, producers, quorum int) ([][]model.Record, error) {
	if quorum <= 0 || quorum > producers {
		return nil, fmt.Errorf("quorum %d is not reachable with %d producers", quorum, producers)
	}

	quorumResults := make(map[string][]model.Record, len(tasks))

	// мапа задач [TaskID]:*taskState для подсчёта голосов по каждому заданию
	states := make(map[string]*taskState, len(tasks))
	for i := range tasks {
		states[tasks[i].Task.TaskID] = &taskState{task: tasks[i], votes: make(map[uint64]*taskTotals)}
	}

	var errs []error
	decided := 0

collect:
	for decided < len(states) {
		select {
		case <-ctx.Done():
			break collect
		case outcome, ok := <-ch:
			if !ok {
				break collect
			}

			st, taskExists := states[outcome.TaskID]
			if !taskExists || st.done {
				continue
			}
			st.responses++

			if outcome.Err != nil {
				st.errs = append(st.errs, outcome.Err)
			} else {
				vote, hashExists := st.votes[outcome.Result.HashSumm]
				if !hashExists {
					vote = &taskTotals{data: outcome.Result.Output}
					st.votes[outcome.Result.HashSumm] = vote
				}
				vote.votes++
				st.maxVotes = max(st.maxVotes, vote.votes)

				if vote.votes >= quorum { // кворум достигнут - отменяем оставшиеся запросы по этой задаче
					st.done = true
					decided++
					st.task.CancelCTX()
					quorumResults[outcome.TaskID] = vote.data
					continue
				}
			}

			// даже если все оставшиеся ответят одинаково, кворума не будет
			if st.maxVotes+(producers-st.responses) < quorum {
				st.done = true
				decided++
				st.task.CancelCTX()
				errs = append(errs, st.failure(quorum))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(quorumResults) != len(states) {
		return nil, errors.New("result collector's context exceeded or cancelled before all tasks finished")
	}

	// формируем результат в порядке заданий
	resRecords := make([][]model.Record, 0, len(tasks))
	for _, v := range tasks {
		resRecords = append(resRecords, quorumResults[v.Task.TaskID])
	}
	return resRecords, nil
}

func (st *taskState) failure(quorum int) error {
	name := st.task.Task.FileName
	if name == "" {
		name = "stdin"
	}
	if len(st.errs) > 0 {
		return fmt.Errorf("task %q (%s): %w", st.task.Task.TaskID, name, errors.Join(st.errs...))
	}
	return fmt.Errorf("task %q (%s): producers disagree, no result got %d votes", st.task.Task.TaskID, name, quorum)
}

func producerName(p TaskProcessor) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return "local"
}
