package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"stockdesk/llm/tools"
	"stockdesk/pubsub"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

var (
	// ErrApprovalPending 线程有待审批的中断，必须先 Resume
	ErrApprovalPending = errors.New("thread has a pending approval")
	// ErrNothingToResume 线程没有待审批的中断
	ErrNothingToResume = errors.New("thread has no pending approval")
	// ErrEmptyInput 用户输入为空
	ErrEmptyInput = errors.New("input is empty")
)

// CheckPointStore is the checkpoint backend used by the runtime.
type CheckPointStore interface {
	compose.CheckPointStore
	Delete(ctx context.Context, checkPointID string) error
}

// RuntimeConfig holds dependencies for the runtime.
type RuntimeConfig struct {
	ChatModel    model.ToolCallingChatModel
	Tools        []tool.BaseTool
	Store        ConversationStore
	CheckPoints  CheckPointStore
	Logger       *zap.Logger
	GraphName    string
	MaxRunSteps  int
	SystemPrompt string
	// Handlers 是每次运行附加的 eino 回调
	Handlers []callbacks.Handler
}

// Result is the outcome of one Ask or Resume call.
type Result struct {
	ThreadID string
	// Messages 是本次运行新产生的消息（不含用户输入）
	Messages []*schema.Message
	// Reply 是最后一条助手消息的文本
	Reply string
	// Interrupt 不为空表示运行已暂停，等待 Resume
	Interrupt *Interrupt
}

// Interrupted reports whether the run paused for a decision.
func (r *Result) Interrupted() bool {
	return r != nil && r.Interrupt != nil
}

// Runtime Agent 运行时
type Runtime struct {
	graph       Graph
	store       ConversationStore
	checkpoints CheckPointStore
	broker      *pubsub.Broker[Event]
	logger      *zap.Logger
	handlers    []callbacks.Handler
	topology    *TopologyRecorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRuntime 创建新的 Agent 运行时
func NewRuntime(ctx context.Context, cfg *RuntimeConfig) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("runtime config is nil")
	}
	if cfg.Store == nil {
		return nil, errors.New("conversation store is required")
	}
	if cfg.CheckPoints == nil {
		return nil, errors.New("checkpoint store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	topology := &TopologyRecorder{}
	graph, err := BuildGraph(ctx, &GraphConfig{
		ChatModel:        cfg.ChatModel,
		Tools:            cfg.Tools,
		CheckPointStore:  cfg.CheckPoints,
		Name:             cfg.GraphName,
		MaxRunSteps:      cfg.MaxRunSteps,
		SystemPrompt:     cfg.SystemPrompt,
		CompileCallbacks: []compose.GraphCompileCallback{topology},
	})
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	return &Runtime{
		graph:       graph,
		store:       cfg.Store,
		checkpoints: cfg.CheckPoints,
		broker:      pubsub.NewBroker[Event](),
		logger:      logger,
		handlers:    cfg.Handlers,
		topology:    topology,
		locks:       make(map[string]*sync.Mutex),
	}, nil
}

// Ask 运行一轮对话。若 buy_stock 请求审批，返回的 Result 带有 Interrupt。
func (r *Runtime) Ask(ctx context.Context, threadID, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	unlock := r.lock(threadID)
	defer unlock()

	thread, err := r.store.Load(ctx, threadID)
	if errors.Is(err, ErrThreadNotFound) {
		thread = &Thread{ID: threadID}
	} else if err != nil {
		return nil, err
	}
	if thread.Pending != nil {
		return nil, fmt.Errorf("%w: %s", ErrApprovalPending, thread.Pending.Question)
	}

	thread.Turn++
	userMsg := schema.UserMessage(text)
	input := make([]*schema.Message, 0, len(thread.Messages)+1)
	input = append(input, thread.Messages...)
	input = append(input, userMsg)

	cpID := checkPointID(threadID, thread.Turn)
	r.broker.Publish(pubsub.CreatedEvent, Event{ThreadID: threadID, Message: userMsg})
	r.logger.Debug("run graph",
		zap.String("thread", threadID),
		zap.String("checkpoint", cpID),
		zap.Int("history", len(thread.Messages)))

	out, runErr := r.graph.Invoke(ctx, input, r.runOptions(cpID)...)

	thread.Messages = input
	return r.settle(ctx, thread, cpID, len(input), out, runErr)
}

// Resume 提交人工决策，从中断处继续执行
func (r *Runtime) Resume(ctx context.Context, threadID, decision string) (*Result, error) {
	unlock := r.lock(threadID)
	defer unlock()

	thread, err := r.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	pending := thread.Pending
	if pending == nil {
		return nil, fmt.Errorf("%w: %s", ErrNothingToResume, threadID)
	}

	// 内存 checkpoint 不跨进程，线程可能还在但 checkpoint 已丢失
	if _, ok, err := r.checkpoints.Get(ctx, pending.CheckPointID); err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", pending.CheckPointID, err)
	} else if !ok {
		return nil, fmt.Errorf("%w: checkpoint %s is gone, reset the thread", ErrNothingToResume, pending.CheckPointID)
	}

	r.broker.Publish(pubsub.ResumedEvent, Event{ThreadID: threadID, Decision: decision})
	r.logger.Debug("resume graph",
		zap.String("thread", threadID),
		zap.String("checkpoint", pending.CheckPointID),
		zap.Bool("approved", tools.Approved(decision)))

	// 决策只投递给待审批的那个中断，同一批次的其他 buy_stock 会再次中断
	resumeCtx := compose.ResumeWithData(ctx, pending.InterruptID, decision)

	// 从 checkpoint 恢复时图的输入不会被使用
	out, runErr := r.graph.Invoke(resumeCtx, nil, r.runOptions(pending.CheckPointID)...)

	return r.settle(ctx, thread, pending.CheckPointID, pending.InputLen, out, runErr)
}

// Pending 返回线程待审批的中断，没有时返回 nil
func (r *Runtime) Pending(ctx context.Context, threadID string) (*Interrupt, error) {
	thread, err := r.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return thread.Pending, nil
}

// History 返回线程中保存的消息
func (r *Runtime) History(ctx context.Context, threadID string) ([]*schema.Message, error) {
	thread, err := r.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return thread.Messages, nil
}

// Reset 删除线程及其待恢复的 checkpoint
func (r *Runtime) Reset(ctx context.Context, threadID string) error {
	unlock := r.lock(threadID)
	defer unlock()

	thread, err := r.store.Load(ctx, threadID)
	if errors.Is(err, ErrThreadNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if thread.Pending != nil {
		if err := r.checkpoints.Delete(ctx, thread.Pending.CheckPointID); err != nil {
			return fmt.Errorf("delete checkpoint: %w", err)
		}
	}
	return r.store.Delete(ctx, threadID)
}

// settle 处理一次图执行的结果：记录中断或保存完整对话
func (r *Runtime) settle(ctx context.Context, thread *Thread, cpID string, inputLen int, out []*schema.Message, runErr error) (*Result, error) {
	if runErr != nil {
		intr, ok := extractInterrupt(runErr)
		if !ok {
			return nil, fmt.Errorf("run graph: %w", runErr)
		}
		intr.CheckPointID = cpID
		intr.InputLen = inputLen
		thread.Pending = intr

		if err := r.store.Save(ctx, thread); err != nil {
			return nil, fmt.Errorf("save thread: %w", err)
		}
		r.broker.Publish(pubsub.InterruptedEvent, Event{ThreadID: thread.ID, Interrupt: intr})
		return &Result{ThreadID: thread.ID, Interrupt: intr}, nil
	}

	var newMsgs []*schema.Message
	if inputLen < len(out) {
		newMsgs = out[inputLen:]
	}

	thread.Messages = out
	thread.Pending = nil
	if err := r.store.Save(ctx, thread); err != nil {
		return nil, fmt.Errorf("save thread: %w", err)
	}
	if err := r.checkpoints.Delete(ctx, cpID); err != nil {
		r.logger.Warn("failed to delete checkpoint", zap.String("checkpoint", cpID), zap.Error(err))
	}

	for _, msg := range newMsgs {
		r.broker.Publish(pubsub.CreatedEvent, Event{ThreadID: thread.ID, Message: msg})
	}

	reply := lastAssistantText(newMsgs)
	r.broker.Publish(pubsub.FinishedEvent, Event{ThreadID: thread.ID, Reply: reply})

	return &Result{ThreadID: thread.ID, Messages: newMsgs, Reply: reply}, nil
}

func (r *Runtime) runOptions(cpID string) []compose.Option {
	opts := []compose.Option{compose.WithCheckPointID(cpID)}
	if len(r.handlers) > 0 {
		opts = append(opts, compose.WithCallbacks(r.handlers...))
	}
	return opts
}

// lock 串行化同一线程上的 Ask/Resume
func (r *Runtime) lock(threadID string) func() {
	r.mu.Lock()
	l, ok := r.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[threadID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Topology 返回编译后图的边
func (r *Runtime) Topology() []Edge {
	return r.topology.Edges()
}

// Broker 获取事件 Broker
func (r *Runtime) Broker() *pubsub.Broker[Event] {
	return r.broker
}

// Close 关闭运行时
func (r *Runtime) Close() {
	r.broker.Shutdown()
}

func checkPointID(threadID string, turn int) string {
	return fmt.Sprintf("%s:%d", threadID, turn)
}

func lastAssistantText(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] != nil && msgs[i].Role == schema.Assistant && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return ""
}
