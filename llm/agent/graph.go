package agent

import (
	"context"
	"errors"
	"fmt"

	"stockdesk/llm/tools"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// 图中的节点名
const (
	NodeChatbot = "chatbot"
	NodeTools   = "tools"
	NodeRespond = "respond"
)

// StockAssistantPrompt is prepended to every model call; it is not stored in the transcript.
const StockAssistantPrompt = `You are a stock trading assistant.
Use get_stock_price to look up prices. To buy shares call buy_stock with the stock name,
the quantity and the total cost (quantity multiplied by the latest known price).
buy_stock asks a human for approval; report its result to the user as-is.`

// agentState 图的本地状态，累积整个对话；中断时随 checkpoint 一起保存
type agentState struct {
	Messages []*schema.Message
}

func init() {
	// 注册到 eino 的序列化器，使其可以在 checkpoint 中保存
	schema.RegisterName[*agentState]("stockdesk.agentState")
}

// GraphConfig holds dependencies for the HITL graph.
type GraphConfig struct {
	ChatModel       model.ToolCallingChatModel
	Tools           []tool.BaseTool
	CheckPointStore compose.CheckPointStore
	Name            string
	MaxRunSteps     int
	SystemPrompt    string

	// CompileCallbacks 在编译完成时收到图结构，例如 TopologyRecorder
	CompileCallbacks []compose.GraphCompileCallback
}

// Graph is the compiled chatbot <-> tools graph. Input is the conversation so
// far; output is the whole transcript after the run.
type Graph = compose.Runnable[[]*schema.Message, []*schema.Message]

// BuildGraph wires and compiles the two-node conditional graph:
//
//	START -> chatbot -(tool calls)-> tools -> chatbot
//	         chatbot -(no tool calls)-> respond -> END
func BuildGraph(ctx context.Context, cfg *GraphConfig) (Graph, error) {
	if cfg == nil {
		return nil, errors.New("graph config is nil")
	}
	if cfg.ChatModel == nil {
		return nil, errors.New("chat model is required")
	}

	toolInfos := make([]*schema.ToolInfo, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		toolInfos = append(toolInfos, info)
	}

	chatModel, err := cfg.ChatModel.WithTools(toolInfos)
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               cfg.Tools,
		ToolCallMiddlewares: []compose.ToolMiddleware{tools.ErrorHandler()},
	})
	if err != nil {
		return nil, fmt.Errorf("create tools node: %w", err)
	}

	g := compose.NewGraph[[]*schema.Message, []*schema.Message](
		compose.WithGenLocalState(func(ctx context.Context) *agentState {
			return &agentState{}
		}),
	)

	prompt := cfg.SystemPrompt
	if err := g.AddChatModelNode(NodeChatbot, chatModel,
		compose.WithStatePreHandler(func(ctx context.Context, in []*schema.Message, state *agentState) ([]*schema.Message, error) {
			state.Messages = append(state.Messages, in...)
			if prompt == "" {
				return state.Messages, nil
			}
			msgs := make([]*schema.Message, 0, len(state.Messages)+1)
			msgs = append(msgs, schema.SystemMessage(prompt))
			return append(msgs, state.Messages...), nil
		}),
		compose.WithStatePostHandler(func(ctx context.Context, out *schema.Message, state *agentState) (*schema.Message, error) {
			state.Messages = append(state.Messages, out)
			return out, nil
		}),
		compose.WithNodeName(NodeChatbot),
	); err != nil {
		return nil, fmt.Errorf("add %s node: %w", NodeChatbot, err)
	}

	if err := g.AddToolsNode(NodeTools, toolsNode, compose.WithNodeName(NodeTools)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", NodeTools, err)
	}

	if err := g.AddLambdaNode(NodeRespond, compose.InvokableLambda(transcript),
		compose.WithNodeName(NodeRespond)); err != nil {
		return nil, fmt.Errorf("add %s node: %w", NodeRespond, err)
	}

	if err := g.AddEdge(compose.START, NodeChatbot); err != nil {
		return nil, err
	}
	if err := g.AddBranch(NodeChatbot, compose.NewGraphBranch(routeToolCalls,
		map[string]bool{NodeTools: true, NodeRespond: true})); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeTools, NodeChatbot); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeRespond, compose.END); err != nil {
		return nil, err
	}

	opts := []compose.GraphCompileOption{compose.WithGraphName(cfg.Name)}
	if cfg.MaxRunSteps > 0 {
		opts = append(opts, compose.WithMaxRunSteps(cfg.MaxRunSteps))
	}
	if cfg.CheckPointStore != nil {
		opts = append(opts, compose.WithCheckPointStore(cfg.CheckPointStore))
	}
	if len(cfg.CompileCallbacks) > 0 {
		opts = append(opts, compose.WithGraphCompileCallbacks(cfg.CompileCallbacks...))
	}

	runnable, err := g.Compile(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}
	return runnable, nil
}

// routeToolCalls 有工具调用时进入 tools 节点，否则结束本轮
func routeToolCalls(_ context.Context, msg *schema.Message) (string, error) {
	if msg != nil && len(msg.ToolCalls) > 0 {
		return NodeTools, nil
	}
	return NodeRespond, nil
}

// transcript 把状态中累积的消息作为图的输出
func transcript(ctx context.Context, _ *schema.Message) ([]*schema.Message, error) {
	var out []*schema.Message
	err := compose.ProcessState[*agentState](ctx, func(_ context.Context, state *agentState) error {
		out = make([]*schema.Message, len(state.Messages))
		copy(out, state.Messages)
		return nil
	})
	return out, err
}
