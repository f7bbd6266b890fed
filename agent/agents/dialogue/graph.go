package dialogue

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/tanpawarit/autocredit-bot/agent/nodes"
)

func (c *Controller) compileHandleEventGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_event",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateEvent(in, c.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_event: %w", err)
	}

	if err := graph.AddLambdaNode("load_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadSession(in, c.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_session: %w", err)
	}

	if err := graph.AddLambdaNode("apply_event",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyEvent(in, c.prompts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_event: %w", err)
	}

	if err := graph.AddLambdaNode("invoke_strategy",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.InvokeStrategy(in, c.strategies, c.prompts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node invoke_strategy: %w", err)
	}

	if err := graph.AddLambdaNode("save_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(in, c.store, c.prompts)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node save_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_action",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeAction(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_action: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_event"},
		{"validate_event", "load_session"},
		{"load_session", "apply_event"},
		{"apply_event", "invoke_strategy"},
		{"invoke_strategy", "save_session"},
		{"save_session", "finalize_action"},
		{"finalize_action", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("dialogue.handle_event"))
	if err != nil {
		return nil, fmt.Errorf("compile dialogue graph: %w", err)
	}
	return runner, nil
}
