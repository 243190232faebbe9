// Package remote sends filter tasks to filter-nodes over HTTP and checks their health
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/UnendingLoop/URLFilter/internal/model"
	"github.com/UnendingLoop/URLFilter/internal/processor"
)

const healthTimeout = 5 * time.Second

// NodeError is a non-200 answer of a filter-node
type NodeError struct {
	Node   string
	Status int
	Msg    string
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q answered %d: %s", e.Node, e.Status, e.Msg)
}

// Node processes tasks on a remote filter-node
type Node struct {
	Addr   string
	Client *http.Client
}

func NewNodes(client *http.Client, addrs []string) []*Node {
	nodes := make([]*Node, 0, len(addrs))
	for _, addr := range addrs {
		nodes = append(nodes, &Node{Addr: addr, Client: client})
	}
	return nodes
}

func (n *Node) String() string {
	return n.Addr
}

func (n *Node) ProcessTask(ctx context.Context, task *model.FilterTask) (*model.FilterResult, error) {
	raw, err := json.Marshal(model.FilterRequest{Term: task.Term, Records: task.Records})
	if err != nil {
		return nil, fmt.Errorf("failed to MARSHAL task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Addr+"/filter", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build request to node %q: %w", n.Addr, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to SEND task to node %q: %w", n.Addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &NodeError{Node: n.Addr, Status: resp.StatusCode, Msg: body.Error}
	}

	var result model.FilterResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to UNMARSHAL result from node %q: %w", n.Addr, err)
	}
	if result.Output == nil {
		result.Output = []model.Record{}
	}

	// голос ноды считается по хешу, поэтому сверяем его с тем, что она реально прислала
	sum, err := processor.Fingerprint(ctx, result.Output)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if sum != result.HashSumm {
		return nil, fmt.Errorf("node %q sent hash %016x for output hashed as %016x", n.Addr, result.HashSumm, sum)
	}

	result.TaskID = task.TaskID
	return &result, nil
}

// CheckNodesHealth pings every node and fails if fewer than quorum answer 200
func CheckNodesHealth(ctx context.Context, client *http.Client, nodes []string, quorum int) error {
	wg := sync.WaitGroup{}
	var goodNodes atomic.Int64
	rCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	for _, addr := range nodes {
		wg.Go(func() {
			req, err := http.NewRequestWithContext(rCtx, http.MethodGet, addr+"/ping", nil)
			if err != nil {
				return
			}

			resp, err := client.Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				goodNodes.Add(1)
			}
		})
	}

	wg.Wait()
	res := goodNodes.Load()
	if res < int64(quorum) {
		return fmt.Errorf("only %d filter-nodes are OK to continue, while quorum should be %d", res, quorum)
	}
	return nil
}
