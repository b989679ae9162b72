package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
)

const bufferSize = 64

// Broker 实现了基于内存的发布者/订阅者模型。
// 它使用泛型 T 来保证事件数据载荷的类型安全。
type Broker[T any] struct {
	subs       map[chan Event[T]]struct{} // 活跃订阅者的集合，键为事件通道
	mu         sync.RWMutex               // 保护 subs 映射的并发访问
	done       chan struct{}              // 关闭信号通道
	bufferSize int                        // 每个订阅通道的缓冲区大小
	dropped    atomic.Int64               // 因订阅者缓冲区已满而丢弃的事件数
}

// NewBroker 创建并返回一个新的具有默认设置的 Broker。
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](bufferSize)
}

// NewBrokerWithBuffer 创建一个带有自定义通道缓冲区大小的 Broker。
func NewBrokerWithBuffer[T any](channelBufferSize int) *Broker[T] {
	if channelBufferSize <= 0 {
		channelBufferSize = bufferSize
	}
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: channelBufferSize,
	}
}

// Shutdown 关闭 Broker，并关闭所有订阅者的通道。可重复调用。
func (b *Broker[T]) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
		close(b.done)
	}

	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribe 注册一个订阅者并返回一个接收事件的通道。
// 该通道会在 ctx 结束或 Broker 关闭时自动注销并关闭。
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	// 如果 Broker 已关闭，返回一个立即关闭的通道
	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
		}
	}()

	return sub
}

// GetSubscriberCount 返回当前活跃的订阅者数量。
func (b *Broker[T]) GetSubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped 返回因订阅者处理过慢而被丢弃的事件总数。
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}

// Publish 将一个事件分发给所有活跃的订阅者。
// 该操作是非阻塞的：如果订阅者的缓冲区已满，该订阅者将跳过当前事件。
func (b *Broker[T]) Publish(t EventType, payload T) {
	// 持有读锁发送，避免与 Shutdown/退订关闭通道产生竞争
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	event := Event[T]{Type: t, Payload: payload}
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			b.dropped.Add(1)
		}
	}
}
