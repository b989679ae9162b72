package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ErrThreadNotFound 线程不存在
var ErrThreadNotFound = errors.New("thread not found")

// Thread 是一个对话线程的持久化状态
type Thread struct {
	ID        string            `json:"id"`
	Turn      int               `json:"turn"`
	Messages  []*schema.Message `json:"messages"`
	Pending   *Interrupt        `json:"pending,omitempty"` // 等待人工审批的中断
	UpdatedAt time.Time         `json:"updated_at"`
}

// clone 返回副本，避免外部修改存储中的数据
func (t *Thread) clone() *Thread {
	c := *t
	c.Messages = make([]*schema.Message, len(t.Messages))
	copy(c.Messages, t.Messages)
	if t.Pending != nil {
		p := *t.Pending
		c.Pending = &p
	}
	return &c
}

// ConversationStore 对话线程存储接口
type ConversationStore interface {
	// Load 读取线程，不存在时返回 ErrThreadNotFound
	Load(ctx context.Context, threadID string) (*Thread, error)
	// Save 保存线程（带滑动窗口和工具结果压缩）
	Save(ctx context.Context, thread *Thread) error
	// Delete 删除线程，不存在时不报错
	Delete(ctx context.Context, threadID string) error
}

// Compactor 对线程消息做滑动窗口裁剪和工具响应压缩
type Compactor struct {
	MaxMessages     int // 最大保留消息数，<=0 表示不限制
	MaxToolResponse int // 工具响应最大长度（字符数），<=0 表示不压缩
}

// Compact 返回裁剪后的消息列表，输入不会被修改
func (c Compactor) Compact(msgs []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg != nil && msg.Role == schema.Tool {
			msg = c.compressToolResponse(msg)
		}
		out = append(out, msg)
	}

	if c.MaxMessages <= 0 || len(out) <= c.MaxMessages {
		return out
	}

	// 滑动窗口：只在用户消息处截断，避免留下没有对应 tool call 的工具响应
	start := len(out) - c.MaxMessages
	for start < len(out) && (out[start] == nil || out[start].Role != schema.User) {
		start++
	}
	if start == len(out) {
		// 窗口内没有用户消息，保留最后一个用户消息开始的整轮对话
		start = lastUserIndex(out)
	}
	return out[start:]
}

// lastUserIndex 返回最后一条用户消息的位置，没有时返回 0
func lastUserIndex(msgs []*schema.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i] != nil && msgs[i].Role == schema.User {
			return i
		}
	}
	return 0
}

// compressToolResponse 压缩工具响应消息
func (c Compactor) compressToolResponse(msg *schema.Message) *schema.Message {
	if c.MaxToolResponse <= 0 || len(msg.Content) <= c.MaxToolResponse {
		return msg
	}

	originalLen := len(msg.Content)
	truncated := msg.Content[:c.MaxToolResponse]

	// 寻找合适的截断点
	cutoff := c.MaxToolResponse
	for _, bp := range []string{".\n", ". ", "\n\n", "\n"} {
		if idx := strings.LastIndex(truncated, bp); idx > c.MaxToolResponse/2 {
			cutoff = idx + len(bp)
			break
		}
	}

	compressed := *msg
	compressed.Content = msg.Content[:cutoff] + fmt.Sprintf(
		"\n\n[Content truncated: original %d chars -> %d chars, saved %.1f%%]",
		originalLen,
		cutoff,
		float64(originalLen-cutoff)/float64(originalLen)*100,
	)
	return &compressed
}

// MemoryStore 内存实现的对话存储
type MemoryStore struct {
	mu        sync.RWMutex
	threads   map[string]*Thread
	compactor Compactor
}

// NewMemoryStore 创建一个新的内存存储
func NewMemoryStore(compactor Compactor) *MemoryStore {
	return &MemoryStore{
		threads:   make(map[string]*Thread),
		compactor: compactor,
	}
}

// Load 实现 ConversationStore
func (s *MemoryStore) Load(_ context.Context, threadID string) (*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	return t.clone(), nil
}

// Save 实现 ConversationStore
func (s *MemoryStore) Save(_ context.Context, thread *Thread) error {
	if thread == nil || thread.ID == "" {
		return errors.New("thread id is required")
	}

	stored := thread.clone()
	stored.Messages = s.compactor.Compact(stored.Messages)
	stored.UpdatedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[thread.ID] = stored
	return nil
}

// Delete 实现 ConversationStore
func (s *MemoryStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}
