package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/compose"
)

// ResultStatus represents the status of a tool execution
type ResultStatus string

const (
	StatusSuccess  ResultStatus = "success"
	StatusError    ResultStatus = "error"
	StatusDeclined ResultStatus = "declined" // 用户拒绝了操作
)

// Metadata contains structured metadata about tool execution
type Metadata struct {
	Stock     string  `json:"stock,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`
	TotalCost float64 `json:"total_cost,omitempty"`
	Decision  string  `json:"decision,omitempty"`
}

// ToolResult represents a structured tool response
type ToolResult struct {
	Status   ResultStatus `json:"status"`
	Content  string       `json:"content"`
	Metadata *Metadata    `json:"metadata,omitempty"`
}

// String returns the formatted string representation for LLM consumption
func (r *ToolResult) String() string {
	var sb strings.Builder

	switch r.Status {
	case StatusError:
		sb.WriteString("[ERROR] ")
	case StatusDeclined:
		sb.WriteString("[DECLINED] ")
	}

	sb.WriteString(r.Content)

	if r.Metadata != nil {
		md := r.Metadata
		var attrs []string

		if md.Stock != "" {
			attrs = append(attrs, fmt.Sprintf("stock=%s", md.Stock))
		}
		if md.Price > 0 {
			attrs = append(attrs, fmt.Sprintf("price=%s", FormatAmount(md.Price)))
		}
		if md.Quantity > 0 {
			attrs = append(attrs, fmt.Sprintf("quantity=%d", md.Quantity))
		}
		if md.TotalCost > 0 {
			attrs = append(attrs, fmt.Sprintf("total_cost=%s", FormatAmount(md.TotalCost)))
		}
		if md.Decision != "" {
			attrs = append(attrs, fmt.Sprintf("decision=%q", md.Decision))
		}

		if len(attrs) > 0 {
			sb.WriteString(fmt.Sprintf("\n\n<metadata %s />", strings.Join(attrs, " ")))
		}
	}

	return sb.String()
}

// JSON returns the JSON representation (for debugging/logging)
func (r *ToolResult) JSON() string {
	data, _ := json.MarshalIndent(r, "", "  ")
	return string(data)
}

// Success creates a successful tool result
func Success(content string, metadata *Metadata) (string, error) {
	return (&ToolResult{
		Status:   StatusSuccess,
		Content:  content,
		Metadata: metadata,
	}).String(), nil
}

// Declined creates a result for an action the user refused
func Declined(content string, metadata *Metadata) (string, error) {
	return (&ToolResult{
		Status:   StatusDeclined,
		Content:  content,
		Metadata: metadata,
	}).String(), nil
}

// Error creates an error tool result
func Error(content string) (string, error) {
	return (&ToolResult{
		Status:  StatusError,
		Content: content,
	}).String(), nil
}

// FormatAmount prints a float without trailing zeros, e.g. 1500 or 12.5.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ErrorHandler 是工具错误处理中间件
// 捕获工具调用错误，转换为友好的错误消息；中断信号原样透传
func ErrorHandler() compose.ToolMiddleware {
	return compose.ToolMiddleware{
		Invokable: func(next compose.InvokableToolEndpoint) compose.InvokableToolEndpoint {
			return func(ctx context.Context, in *compose.ToolInput) (*compose.ToolOutput, error) {
				output, err := next(ctx, in)
				if err == nil {
					return output, nil
				}
				if IsInterrupt(err) {
					return nil, err
				}

				errStr := err.Error()
				// 提取核心错误信息
				if idx := strings.Index(errStr, "err="); idx != -1 {
					errStr = strings.TrimSpace(errStr[idx+4:])
				}
				return &compose.ToolOutput{
					Result: fmt.Sprintf("Error: %s", errStr),
				}, nil
			}
		},
	}
}

// IsInterrupt reports whether err carries an interrupt signal from a tool.
func IsInterrupt(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := compose.ExtractInterruptInfo(err); ok {
		return true
	}
	_, ok := compose.IsInterruptRerunError(err)
	return ok
}
