package agent

import (
	"context"

	"stockdesk/pubsub"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// Event 是 Runtime 通过 Broker 发布的事件载荷
type Event struct {
	ThreadID  string
	Message   *schema.Message // CreatedEvent
	Interrupt *Interrupt      // InterruptedEvent
	Decision  string          // ResumedEvent
	Reply     string          // FinishedEvent
}

// LogEvents 订阅 Runtime 事件并写入审计日志，直到 ctx 结束或 Broker 关闭
func LogEvents(ctx context.Context, sub pubsub.Subscriber[Event], logger *zap.Logger) {
	for event := range sub.Subscribe(ctx) {
		e := event.Payload
		switch event.Type {
		case pubsub.CreatedEvent:
			if e.Message == nil {
				continue
			}
			fields := []zap.Field{zap.String("thread", e.ThreadID), zap.String("role", string(e.Message.Role))}
			for _, tc := range e.Message.ToolCalls {
				fields = append(fields, zap.String("tool_call", tc.Function.Name))
			}
			if e.Message.Role == schema.Tool {
				fields = append(fields, zap.String("tool_result", e.Message.Content))
			}
			logger.Debug("message", fields...)
		case pubsub.InterruptedEvent:
			logger.Info("approval requested",
				zap.String("thread", e.ThreadID),
				zap.String("checkpoint", e.Interrupt.CheckPointID),
				zap.String("question", e.Interrupt.Question))
		case pubsub.ResumedEvent:
			logger.Info("approval decided", zap.String("thread", e.ThreadID), zap.String("decision", e.Decision))
		case pubsub.FinishedEvent:
			logger.Debug("turn finished", zap.String("thread", e.ThreadID))
		}
	}
}
