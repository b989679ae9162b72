package main

import (
	"context"
	"fmt"

	"stockdesk/config"
	"stockdesk/llm/agent"
	"stockdesk/llm/checkpoint"
	"stockdesk/llm/providers"
	"stockdesk/llm/tools"

	"github.com/cloudwego/eino/callbacks"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app 持有运行期依赖，Close 按创建的逆序释放
type app struct {
	runtime *agent.Runtime
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Tracing.Enabled() {
		shutdown, err := providers.SetupTracing(ctx, cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("setup tracing: %w", err)
		}
		a.closers = append(a.closers, func() { shutdown(context.Background()) })
		logger.Info("cozeloop tracing enabled")
	}

	var rdb redis.UniversalClient
	if cfg.UsesRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		a.closers = append(a.closers, func() { _ = client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		rdb = client
	}

	checkpoints, err := checkpoint.New(cfg.Checkpoint, rdb, cfg.Redis.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("create checkpoint store: %w", err)
	}
	a.closers = append(a.closers, func() { _ = checkpoints.Close() })

	compactor := agent.Compactor{
		MaxMessages:     cfg.Conversation.MaxMessages,
		MaxToolResponse: cfg.Conversation.MaxToolResponse,
	}
	var store agent.ConversationStore
	switch cfg.Conversation.Backend {
	case "redis":
		store = agent.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Conversation.TTL, compactor)
	default:
		store = agent.NewMemoryStore(compactor)
	}

	chatModel, err := providers.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	stockTools, err := tools.NewStockTools(tools.NewRandomQuotes(0))
	if err != nil {
		return nil, err
	}

	rt, err := agent.NewRuntime(ctx, &agent.RuntimeConfig{
		ChatModel:    chatModel,
		Tools:        stockTools,
		Store:        store,
		CheckPoints:  checkpoints,
		Logger:       logger,
		GraphName:    cfg.Graph.Name,
		MaxRunSteps:  cfg.Graph.MaxRunSteps,
		SystemPrompt: agent.StockAssistantPrompt,
		Handlers:     []callbacks.Handler{agent.NewLoggingHandler(logger)},
	})
	if err != nil {
		return nil, err
	}
	a.runtime = rt
	a.closers = append(a.closers, rt.Close)

	// 审计日志，Broker 关闭时退出
	go agent.LogEvents(context.Background(), rt.Broker(), logger)

	logger.Info("runtime ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("checkpoint_backend", cfg.Checkpoint.Backend),
		zap.String("conversation_backend", cfg.Conversation.Backend))

	return a, nil
}

// Close 释放所有资源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
