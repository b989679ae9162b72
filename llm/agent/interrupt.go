package agent

import (
	"fmt"
	"sort"

	"stockdesk/llm/tools"

	"github.com/cloudwego/eino/compose"
)

// Interrupt describes a paused run waiting for a human decision.
type Interrupt struct {
	CheckPointID string  `json:"checkpoint_id"`
	InterruptID  string  `json:"interrupt_id,omitempty"`
	Question     string  `json:"question"`
	Stock        string  `json:"stock,omitempty"`
	Quantity     int     `json:"quantity,omitempty"`
	TotalCost    float64 `json:"total_cost,omitempty"`
	// Queued 是同一批次中还在等待审批的其他购买数
	Queued int `json:"queued,omitempty"`
	// InputLen 是本轮图输入的消息数，恢复后据此切出新消息
	InputLen int `json:"input_len"`
}

// String 与原始中断载荷的打印格式保持一致
func (i *Interrupt) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Interrupt(value=%q, id=%q)", i.Question, i.InterruptID)
}

// extractInterrupt 从图执行错误中取出中断信息，不是中断时返回 false。
// 同一批次有多个 buy_stock 中断时按 ID 取第一个，其余的在恢复后会再次中断。
func extractInterrupt(err error) (*Interrupt, bool) {
	info, ok := compose.ExtractInterruptInfo(err)
	if !ok || info == nil {
		return nil, false
	}

	contexts := append(info.InterruptContexts[:0:0], info.InterruptContexts...)
	sort.SliceStable(contexts, func(i, j int) bool {
		if contexts[i] == nil || contexts[j] == nil {
			return contexts[j] == nil && contexts[i] != nil
		}
		return contexts[i].ID < contexts[j].ID
	})

	var (
		picked   *Interrupt
		fallback *Interrupt
		queued   int
	)
	for _, ic := range contexts {
		if ic == nil {
			continue
		}
		if approval, ok := asApproval(ic.Info); ok {
			if picked != nil {
				queued++
				continue
			}
			picked = &Interrupt{
				InterruptID: ic.ID,
				Question:    approval.Question,
				Stock:       approval.Stock,
				Quantity:    approval.Quantity,
				TotalCost:   approval.TotalCost,
			}
			continue
		}
		if fallback == nil && ic.Info != nil {
			fallback = &Interrupt{InterruptID: ic.ID, Question: fmt.Sprint(ic.Info)}
		}
	}

	if picked != nil {
		picked.Queued = queued
		return picked, true
	}
	if fallback == nil {
		fallback = &Interrupt{Question: "Approve the pending action?"}
	}
	return fallback, true
}

func asApproval(v any) (tools.PurchaseApproval, bool) {
	switch a := v.(type) {
	case tools.PurchaseApproval:
		return a, true
	case *tools.PurchaseApproval:
		if a != nil {
			return *a, true
		}
	}
	return tools.PurchaseApproval{}, false
}
