// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dag

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/artifactgen/internal/artifact"
	"github.com/specialistvlad/artifactgen/internal/ctxlog"
	"github.com/specialistvlad/artifactgen/internal/task"
)

// Status is the final state of one task in a run.
type Status int32

const (
	Pending Status = iota
	Running
	Done
	Failed
	// Skipped tasks had an upstream failure.
	Skipped
	// Cancelled tasks were not started because the run was cancelled.
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Executor runs a Graph with a fixed pool of workers.
type Executor struct {
	graph      *Graph
	numWorkers int
}

// NewExecutor returns an executor for g. Fewer than one worker means one.
func NewExecutor(g *Graph, numWorkers int) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Executor{graph: g, numWorkers: numWorkers}
}

// runNode is the per-run execution state of a graph node.
type runNode struct {
	id         string
	task       task.Task
	dependents []*runNode
	depCount   atomic.Int32
	state      atomic.Int32

	result task.Result
	err    error
}

type run struct {
	wg     sync.WaitGroup
	nodes  map[string]*runNode
	cancel context.CancelFunc
}

// Run executes every task once its dependencies are done. The returned
// error joins the root-cause failures, each wrapped with its task ID;
// skipped and cancelled tasks are reported only in the Report.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	logger := ctxlog.FromContext(ctx)
	if err := e.graph.DetectCycles(); err != nil {
		return nil, err
	}

	r := e.prepare()
	readyChan := make(chan *runNode, len(r.nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.cancel = cancel

	roots := 0
	for _, id := range sortedRunKeys(r.nodes) {
		if n := r.nodes[id]; n.depCount.Load() == 0 {
			readyChan <- n
			roots++
		}
	}
	logger.Debug("Found root tasks.", "count", roots, "total", len(r.nodes))

	r.wg.Add(len(r.nodes))
	for i := 0; i < e.numWorkers; i++ {
		go r.worker(runCtx, readyChan, i)
	}
	r.wg.Wait()
	close(readyChan)

	report := r.report()
	if err := report.Err(); err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Executor) prepare() *run {
	e.graph.mutex.RLock()
	defer e.graph.mutex.RUnlock()

	r := &run{nodes: make(map[string]*runNode, len(e.graph.nodes))}
	for id, n := range e.graph.nodes {
		rn := &runNode{id: id, task: n.task}
		rn.depCount.Store(int32(len(n.deps)))
		r.nodes[id] = rn
	}
	for id, n := range e.graph.nodes {
		for _, depID := range sortedKeys(n.dependents) {
			r.nodes[id].dependents = append(r.nodes[id].dependents, r.nodes[depID])
		}
	}
	return r
}

func (r *run) worker(ctx context.Context, readyChan chan *runNode, workerID int) {
	logger := ctxlog.FromContext(ctx)
	for n := range readyChan {
		workerLogger := logger.With("workerID", workerID, "taskID", n.id)

		if ctx.Err() != nil {
			if r.settle(n, Cancelled, ctx.Err()) {
				workerLogger.Warn("Run cancelled, task not started.")
			}
			r.skipDependents(ctx, n)
			continue
		}
		if !n.state.CompareAndSwap(int32(Pending), int32(Running)) {
			continue
		}

		workerLogger.Debug("Running task.")
		res, err := n.task.Run(ctx)
		n.result = res

		if err != nil {
			// Once the run is cancelled, any non-fatal error (a killed
			// process, an interrupted write) is a consequence of the cancel.
			status := Failed
			if ctx.Err() != nil && !artifact.IsFatal(err) {
				status = Cancelled
			}
			n.err = err
			n.state.Store(int32(status))
			if artifact.IsFatal(err) {
				workerLogger.Error("Task failed with a fatal error, cancelling run.", "error", err)
				r.cancel()
			} else {
				workerLogger.Error("Task failed.", "error", err)
			}
			r.skipDependents(ctx, n)
			r.wg.Done()
			continue
		}

		n.state.Store(int32(Done))
		for _, dependent := range n.dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		r.wg.Done()
	}
}

// settle moves a pending node to a terminal status and releases it from
// the wait group. It reports false if the node was already claimed.
func (r *run) settle(n *runNode, status Status, err error) bool {
	if !n.state.CompareAndSwap(int32(Pending), int32(status)) {
		return false
	}
	n.err = err
	r.wg.Done()
	return true
}

// skipDependents marks every pending downstream node as skipped.
func (r *run) skipDependents(ctx context.Context, n *runNode) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range n.dependents {
		if r.settle(dependent, Skipped, fmt.Errorf("skipped due to upstream failure of '%s'", n.id)) {
			logger.Warn("Skipping task due to upstream failure.", "taskID", dependent.id, "dependency", n.id)
			r.skipDependents(ctx, dependent)
		}
	}
}

func (r *run) report() *Report {
	rep := &Report{entries: make(map[string]Entry, len(r.nodes))}
	for id, n := range r.nodes {
		rep.entries[id] = Entry{
			ID:     id,
			Status: Status(n.state.Load()),
			Result: n.result,
			Err:    n.err,
		}
	}
	return rep
}

func sortedRunKeys(m map[string]*runNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
