package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/flowgraph/internal/domain"
	"github.com/shaiso/flowgraph/internal/nodes"
	"github.com/shaiso/flowgraph/internal/telemetry"
)

// nodeOutcome — результат выполнения одного узла.
type nodeOutcome struct {
	node   *domain.Node
	desc   nodes.Descriptor
	exec   domain.NodeExecution
	output any
	err    error
}

// step выполняет пачку готовых узлов и рассылает их выходы.
//
// Узлы пачки выполняются одновременно (если их больше одного),
// а маршрутизация идёт после, в порядке выбора и из одной горутины,
// поэтому pending множество никогда не изменяется конкурентно.
func (e *Engine) step(ctx context.Context, s *runState, batch []*pendingEntry) error {
	outcomes := make([]nodeOutcome, len(batch))

	var execErr error
	if len(batch) == 1 {
		outcomes[0] = e.invoke(ctx, s, batch[0])
		execErr = outcomes[0].err
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, entry := range batch {
			g.Go(func() error {
				outcomes[i] = e.invoke(gctx, s, entry)
				return outcomes[i].err
			})
		}
		execErr = g.Wait()
	}

	// Фиксируем выполнение всех узлов пачки
	for i, entry := range batch {
		s.pending.remove(entry.nodeID)
		s.executed[entry.nodeID] = true
		s.executions = append(s.executions, outcomes[i].exec)
		e.observer.NodeExecuted(s.run, &s.executions[len(s.executions)-1])
		if outcomes[i].err == nil {
			s.outputs[entry.nodeID] = outcomes[i].output
		}
	}

	if execErr != nil {
		return execErr
	}

	for _, out := range outcomes {
		if err := s.route(out.node, out.desc, out.output); err != nil {
			return err
		}
	}

	return nil
}

// invoke выполняет один узел с собранными данными и его конфигурацией.
func (e *Engine) invoke(ctx context.Context, s *runState, entry *pendingEntry) nodeOutcome {
	node, _ := s.graph.NodeByID(entry.nodeID)
	input := entry.input()

	out := nodeOutcome{
		node: node,
		exec: domain.NodeExecution{
			NodeID:    node.ID,
			Type:      node.Type,
			Input:     input,
			StartedAt: time.Now(),
		},
	}

	fail := func(message string, err error) nodeOutcome {
		out.exec.FinishedAt = time.Now()
		out.exec.Status = domain.ExecutionStatusFailed
		out.exec.Error = err.Error()

		execErr := NewExecutionError(node.ID, node.Type, message, err)
		if ctx.Err() != nil {
			out.err = fmt.Errorf("%w: %w", ErrCancelled, execErr)
		} else {
			out.err = execErr
		}
		return out
	}

	nt, err := s.catalog.Lookup(node.Type)
	if err != nil {
		return fail("lookup type", err)
	}
	out.desc = nt.Describe()

	if err := out.desc.ValidateInput(input); err != nil {
		return fail("invalid input", err)
	}

	req := nodes.NewRequest(s.run.ID.String(), node.ID, input, s.graph.ConfigFor(node))
	if s.origins[node.ID] {
		req.Trigger = s.trigger
	}

	logger := telemetry.WithNodeID(s.logger, node.ID)
	execCtx := telemetry.WithLogger(ctx, logger)
	if e.opts.NodeTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(execCtx, e.opts.NodeTimeout)
		defer cancel()
	}

	logger.Debug("executing node", "type", node.Type)

	output, err := nt.Execute(execCtx, req)
	if err != nil {
		logger.Debug("node failed", "type", node.Type, "error", err)
		return fail("execution failed", err)
	}

	out.output = output
	out.exec.Output = output
	out.exec.Status = domain.ExecutionStatusSucceeded
	out.exec.FinishedAt = time.Now()

	logger.Debug("node executed", "type", node.Type, "duration", out.exec.Duration())

	return out
}
