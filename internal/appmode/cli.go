// Package appmode provides 2 methods to work in preliminarily defined mode 'cli' and 'server'
package appmode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/UnendingLoop/URLFilter/internal/collector"
	"github.com/UnendingLoop/URLFilter/internal/model"
	"github.com/UnendingLoop/URLFilter/internal/processor"
	"github.com/UnendingLoop/URLFilter/internal/reader"
	"github.com/UnendingLoop/URLFilter/internal/remote"
	"github.com/docker/distribution/uuid"
)

// RunCLI filters records from every source and prints one JSON array per source.
// With nodes given, every task is sent to each of them and needs ai.Quorum equal answers.
func RunCLI(ctx context.Context, ai *model.AppInit, stdin io.Reader, stdout io.Writer) error {
	sources := ai.FilterParam.Source
	if len(sources) == 0 {
		sources = []string{""} // читаем вход из stdIn
	}

	// преобразовать вход в задания
	tasks := make([]*model.CLITask, 0, len(sources))
	defer func() {
		for _, t := range tasks {
			t.CancelCTX()
		}
	}()

	for _, fname := range sources {
		records, err := reader.ReadRecords(stdin, fname)
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		tCTX, cancel := context.WithTimeout(ctx, ai.TaskTimeout)
		tasks = append(tasks, &model.CLITask{
			Task: model.FilterTask{
				TaskID:   uuid.Generate().String(),
				Term:     ai.FilterParam.Term,
				Records:  records,
				FileName: fname,
			},
			CTX:       tCTX,
			CancelCTX: cancel,
		})
	}

	procs, err := producers(ctx, ai)
	if err != nil {
		return err
	}
	quorum := max(ai.Quorum, 1)

	ch := collector.Dispatch(procs, tasks, ai.Workers)
	result, err := collector.CollectResults(ctx, ch, tasks, len(procs), quorum)
	if err != nil {
		return fmt.Errorf("failed to filter: %w", err)
	}

	// печатаем результат
	for i, records := range result {
		line, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if ai.FilterParam.PrintFileName {
			fmt.Fprintf(stdout, "%s:", tasks[i].Task.FileName)
		}
		fmt.Fprintln(stdout, string(line))
	}
	return nil
}

func producers(ctx context.Context, ai *model.AppInit) ([]collector.TaskProcessor, error) {
	if len(ai.Nodes) == 0 {
		return []collector.TaskProcessor{processor.Processor{}}, nil
	}

	client := &http.Client{}

	// проверить пингом, что хотя бы кворум filter-nodes доступен
	if err := remote.CheckNodesHealth(ctx, client, ai.Nodes, ai.Quorum); err != nil {
		return nil, fmt.Errorf("failed to start filtering: %w", err)
	}
	log.Printf("Sending tasks to %d filter-nodes, quorum is %d", len(ai.Nodes), ai.Quorum)

	procs := make([]collector.TaskProcessor, 0, len(ai.Nodes))
	for _, n := range remote.NewNodes(client, ai.Nodes) {
		procs = append(procs, n)
	}
	return procs, nil
}
