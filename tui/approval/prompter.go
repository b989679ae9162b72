// Package approval asks a human to approve or decline a pending action.
package approval

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// DefaultQuestion 是审批提示语
const DefaultQuestion = "Approve the purchase? (yes/no): "

// ErrCancelled 用户取消了审批输入
var ErrCancelled = errors.New("approval cancelled")

// Prompter 获取人工决策
type Prompter interface {
	// Decide 显示 question 并返回用户输入的原始决策文本
	Decide(ctx context.Context, question string) (string, error)
}

// LinePrompter 从一行文本输入读取决策。
// 所有 Decide 共用一个读取 goroutine，取消的 Decide 不会吞掉下一行输入。
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer

	once  sync.Once
	lines chan string
	err   error // lines 关闭后可读
}

// NewLinePrompter 创建按行读取的 Prompter
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan string),
	}
}

// Decide 实现 Prompter
func (p *LinePrompter) Decide(ctx context.Context, question string) (string, error) {
	if question == "" {
		question = DefaultQuestion
	}
	if _, err := fmt.Fprint(p.out, question); err != nil {
		return "", err
	}

	p.once.Do(func() { go p.readLoop() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text, ok := <-p.lines:
		if !ok {
			if errors.Is(p.err, io.EOF) {
				return "", ErrCancelled
			}
			return "", p.err
		}
		return text, nil
	}
}

// readLoop 逐行读取输入，直到出错；每行等到有 Decide 接收为止
func (p *LinePrompter) readLoop() {
	for {
		text, err := p.in.ReadString('\n')
		// 最后一行可能没有换行符
		if err == nil || text != "" {
			p.lines <- strings.TrimRight(text, "\r\n")
		}
		if err != nil {
			p.err = err
			close(p.lines)
			return
		}
	}
}

// Static 返回固定决策，用于非交互运行和测试
type Static string

// Decide 实现 Prompter
func (s Static) Decide(context.Context, string) (string, error) {
	return string(s), nil
}
