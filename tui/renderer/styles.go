package renderer

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles 消息渲染样式配置
type Styles struct {
	// 消息角色样式
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Tool      lipgloss.Style

	// 工具调用样式
	ToolName   lipgloss.Style
	ToolBorder lipgloss.Style
	Arguments  lipgloss.Style
	Declined   lipgloss.Style
	Error      lipgloss.Style

	// 审批样式
	Approval lipgloss.Style
}

// DefaultStyles 返回绑定到 w 的默认样式，w 不是终端时不输出颜色
func DefaultStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		User:       r.NewStyle().Foreground(lipgloss.Color("#7dcfff")).Bold(true),
		Assistant:  r.NewStyle().Foreground(lipgloss.Color("#bb9af7")).Bold(true),
		System:     r.NewStyle().Foreground(lipgloss.Color("#565f89")).Italic(true),
		Tool:       r.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		ToolName:   r.NewStyle().Foreground(lipgloss.Color("#e0af68")).Bold(true),
		ToolBorder: r.NewStyle().Foreground(lipgloss.Color("#565f89")).Faint(true),
		Arguments:  r.NewStyle().Foreground(lipgloss.Color("#7dcfff")),
		Declined:   r.NewStyle().Foreground(lipgloss.Color("#e0af68")),
		Error:      r.NewStyle().Foreground(lipgloss.Color("#f7768e")),
		Approval: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#e0af68")).
			Padding(0, 1),
	}
}

// PlainStyles 返回不带任何样式的配置
func PlainStyles() *Styles {
	s := lipgloss.NewStyle()
	return &Styles{
		User: s, Assistant: s, System: s, Tool: s,
		ToolName: s, ToolBorder: s, Arguments: s, Declined: s, Error: s,
		Approval: s,
	}
}
