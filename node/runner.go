package node

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/threadflow/message"
)

// Runner executes a workflow graph. Nodes in the same topological layer run
// concurrently; a node only runs once all of its upstreams have produced
// output. Upstream order as declared in Add is preserved when handing
// contexts to a node, which is what makes merge output deterministic.
type Runner struct {
	logger    *slog.Logger
	nodes     map[string]Node
	order     []string            // insertion order, for stable layering
	upstreams map[string][]string // node id -> upstream ids in declared order
}

// NewRunner creates an empty runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		logger:    logger,
		nodes:     make(map[string]Node),
		upstreams: make(map[string][]string),
	}
}

// Add registers a node with its upstream connections in declared order.
// Re-adding an id replaces the node and its connections.
func (r *Runner) Add(n Node, upstreamIDs ...string) {
	id := n.ID()
	if _, exists := r.nodes[id]; !exists {
		r.order = append(r.order, id)
	}
	r.nodes[id] = n
	r.upstreams[id] = append([]string(nil), upstreamIDs...)
}

// Run executes the graph and returns the output context of every node. It
// fails on unknown upstream references, cycles, or a node error; node errors
// cancel the remaining layers.
func (r *Runner) Run(ctx context.Context) (map[string]message.ConversationContext, error) {
	for id, ups := range r.upstreams {
		for _, up := range ups {
			if _, ok := r.nodes[up]; !ok {
				return nil, fmt.Errorf("node %s references unknown upstream %s", id, up)
			}
		}
	}

	results := make(map[string]message.ConversationContext, len(r.nodes))
	var mu sync.Mutex
	done := make(map[string]bool, len(r.nodes))

	for len(done) < len(r.nodes) {
		layer := r.readyLayer(done)
		if len(layer) == 0 {
			return nil, fmt.Errorf("workflow graph has a cycle")
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range layer {
			n := r.nodes[id]
			ups := r.upstreams[id]

			g.Go(func() error {
				inputs := make([]message.ConversationContext, len(ups))
				mu.Lock()
				for i, up := range ups {
					inputs[i] = results[up]
				}
				mu.Unlock()

				out, err := n.Execute(gctx, inputs)
				if err != nil {
					return err
				}

				mu.Lock()
				results[n.ID()] = out
				mu.Unlock()

				r.logger.Debug("Node executed",
					"node", n.ID(),
					"thread_id", out.ThreadID,
					"messages", len(out.Messages))
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, id := range layer {
			done[id] = true
		}
	}

	return results, nil
}

// readyLayer returns the nodes whose upstreams are all done, in insertion
// order.
func (r *Runner) readyLayer(done map[string]bool) []string {
	var layer []string
	for _, id := range r.order {
		if done[id] {
			continue
		}
		ready := true
		for _, up := range r.upstreams[id] {
			if !done[up] {
				ready = false
				break
			}
		}
		if ready {
			layer = append(layer, id)
		}
	}
	return layer
}
