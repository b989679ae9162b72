package pubsub

import "context"

const (
	// CreatedEvent 新消息产生
	CreatedEvent EventType = "created"
	// InterruptedEvent 图执行暂停，等待人工决策
	InterruptedEvent EventType = "interrupted"
	// ResumedEvent 人工决策已提交，图执行恢复
	ResumedEvent EventType = "resumed"
	// FinishedEvent 本轮执行结束
	FinishedEvent EventType = "finished"
)

// Subscriber 订阅者接口，定义了获取事件通道的方法
type Subscriber[T any] interface {
	// Subscribe 返回一个只读的事件通道，并在 context 结束时自动关闭
	Subscribe(context.Context) <-chan Event[T]
}

type (
	// EventType 标识事件的类型
	EventType string

	// Event 代表运行过程中的一个事件
	Event[T any] struct {
		Type    EventType // 事件类型
		Payload T         // 事件携带的具体数据载荷
	}

	// Publisher 发布者接口，定义了发布事件的方法
	Publisher[T any] interface {
		// Publish 将指定类型和载荷的事件发布给所有订阅者
		Publish(EventType, T)
	}
)
