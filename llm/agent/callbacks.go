package agent

import (
	"context"

	"stockdesk/llm/tools"

	"github.com/cloudwego/eino/callbacks"
	"go.uber.org/zap"
)

// NewLoggingHandler 返回一个记录节点开始、结束和错误的 eino 回调
func NewLoggingHandler(logger *zap.Logger) callbacks.Handler {
	fields := func(info *callbacks.RunInfo) []zap.Field {
		if info == nil {
			return nil
		}
		return []zap.Field{
			zap.String("name", info.Name),
			zap.String("type", info.Type),
			zap.String("component", string(info.Component)),
		}
	}

	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
			logger.Debug("node start", fields(info)...)
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackOutput) context.Context {
			logger.Debug("node end", fields(info)...)
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			// 中断是正常流程
			if tools.IsInterrupt(err) {
				logger.Info("node interrupted", fields(info)...)
				return ctx
			}
			logger.Warn("node error", append(fields(info), zap.Error(err))...)
			return ctx
		}).
		Build()
}
