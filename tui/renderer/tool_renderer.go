package renderer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cloudwego/eino/schema"
)

// renderToolCall 渲染单个工具调用及结果
//
//	┌─ Tool Call #1: get_stock_price
//	│ stock_name=AAPL
//	├─ Result:
//	│  42.5
//	└─
func (p *Printer) renderToolCall(tc schema.ToolCall, index int) string {
	border := p.styles.ToolBorder
	var lines []string

	lines = append(lines, border.Render("┌─ ")+p.styles.ToolName.Render(fmt.Sprintf("Tool Call #%d: %s", index, tc.Function.Name)))

	if args := formatArguments(tc.Function.Arguments); args != "" {
		lines = append(lines, border.Render("│ ")+p.styles.Arguments.Render(args))
	}

	result, ok := p.lookupResult(tc.ID)
	if !ok {
		lines = append(lines, border.Render("└─ ")+p.styles.System.Render("(waiting for result)"))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, border.Render("├─ Result:"))
	for _, l := range strings.Split(resultPreview(result), "\n") {
		lines = append(lines, border.Render("│  ")+p.resultStyle(result).Render(l))
	}
	lines = append(lines, border.Render("└─"))

	return strings.Join(lines, "\n")
}

func (p *Printer) resultStyle(result string) lipgloss.Style {
	switch {
	case strings.HasPrefix(result, "[DECLINED]"):
		return p.styles.Declined
	case strings.HasPrefix(result, "[ERROR]"), strings.HasPrefix(result, "Error:"):
		return p.styles.Error
	default:
		return p.styles.Tool
	}
}

// formatArguments 把 JSON 参数格式化为 key=value，解析失败时原样截断
func formatArguments(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "{}" {
		return ""
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return Truncate(raw, 100)
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, " ")
}

// resultPreview 去掉给模型看的 metadata 块，只保留正文
func resultPreview(result string) string {
	if idx := strings.Index(result, "\n\n<metadata"); idx >= 0 {
		result = result[:idx]
	}
	return Truncate(strings.TrimSpace(result), 300)
}
