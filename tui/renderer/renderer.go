package renderer

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"stockdesk/llm/agent"

	"github.com/charmbracelet/glamour"
	"github.com/cloudwego/eino/schema"
)

// Options 控制 Printer 的输出方式
type Options struct {
	// Plain 关闭颜色和边框，输出与普通 print 一致
	Plain bool
	// Markdown 使用 glamour 渲染助手回复
	Markdown bool
}

// Printer 把对话消息、中断和回复写到终端
type Printer struct {
	mu       sync.Mutex
	out      io.Writer
	styles   *Styles
	markdown *glamour.TermRenderer
	plain    bool

	toolResults map[string]string // tool call id -> 结果
}

// NewPrinter 创建 Printer
func NewPrinter(out io.Writer, opts Options) *Printer {
	p := &Printer{
		out:         out,
		plain:       opts.Plain,
		toolResults: make(map[string]string),
	}

	if opts.Plain {
		p.styles = PlainStyles()
	} else {
		p.styles = DefaultStyles(out)
	}

	if opts.Markdown && !opts.Plain {
		// 渲染失败时退回原始文本
		md, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dracula"),
			glamour.WithWordWrap(0),
		)
		if err == nil {
			p.markdown = md
		}
	}
	return p
}

// PrintUser 输出用户输入
func (p *Printer) PrintUser(text string) {
	p.writeln(p.styles.User.Render("User:") + " " + text)
}

// PrintResult 输出一次运行的结果：新消息或中断
func (p *Printer) PrintResult(res *agent.Result) {
	if res == nil {
		return
	}
	if res.Interrupted() {
		p.PrintInterrupt(res.Interrupt)
		return
	}
	p.PrintMessages(res.Messages)
}

// PrintMessages 渲染消息列表。工具结果跟在对应的工具调用下面显示
func (p *Printer) PrintMessages(msgs []*schema.Message) {
	p.mu.Lock()
	for _, msg := range msgs {
		if msg != nil && msg.Role == schema.Tool && msg.ToolCallID != "" {
			p.toolResults[msg.ToolCallID] = msg.Content
		}
	}
	p.mu.Unlock()

	for _, msg := range msgs {
		if rendered := p.RenderMessage(msg); rendered != "" {
			p.writeln(rendered)
		}
	}
}

// RenderMessage 渲染单条消息
func (p *Printer) RenderMessage(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	switch msg.Role {
	case schema.User:
		if msg.Content == "" {
			return ""
		}
		return p.styles.User.Render("User:") + " " + msg.Content
	case schema.Assistant:
		return p.renderAssistant(msg)
	case schema.System:
		if msg.Content == "" {
			return ""
		}
		return p.styles.System.Render("System: " + msg.Content)
	}
	// 工具结果在工具调用处显示
	return ""
}

// PrintInterrupt 输出等待审批的中断
func (p *Printer) PrintInterrupt(intr *agent.Interrupt) {
	if intr == nil {
		return
	}
	if p.plain {
		p.writeln(intr.String())
		return
	}
	body := p.styles.ToolName.Render("Approval required") + "\n" + intr.Question
	if intr.Queued > 0 {
		body += "\n" + p.styles.System.Render(fmt.Sprintf("%d more purchase(s) waiting for approval", intr.Queued))
	}
	p.writeln(p.styles.Approval.Render(body))
}

// PrintError 输出错误
func (p *Printer) PrintError(err error) {
	if err == nil {
		return
	}
	p.writeln(p.styles.Error.Render("Error: " + err.Error()))
}

// PrintSystem 输出提示信息
func (p *Printer) PrintSystem(format string, args ...any) {
	p.writeln(p.styles.System.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) renderAssistant(msg *schema.Message) string {
	var parts []string

	if msg.Content != "" {
		header := p.styles.Assistant.Render("Assistant:")
		parts = append(parts, header+" "+p.renderMarkdown(msg.Content))
	}

	if len(msg.ToolCalls) > 0 {
		if msg.Content == "" {
			parts = append(parts, p.styles.Assistant.Render("Assistant:"))
		}
		for i, tc := range msg.ToolCalls {
			parts = append(parts, p.renderToolCall(tc, i+1))
		}
	}

	return strings.Join(parts, "\n")
}

func (p *Printer) renderMarkdown(content string) string {
	if p.markdown == nil {
		return content
	}
	rendered, err := p.markdown.Render(content)
	if err != nil {
		return content
	}
	// glamour 会添加首尾换行
	return strings.TrimSpace(rendered)
}

func (p *Printer) lookupResult(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res, ok := p.toolResults[id]
	return res, ok
}

func (p *Printer) writeln(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, s)
}
