package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"stockdesk/llm/tools"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// scriptedModel 按最后一条消息决定回复的假模型
//
//	user "...price..."  -> get_stock_price(AAPL)
//	user "Buy ..."      -> buy_stock(AAPL, 10, 10*price)
//	user "...both..."   -> buy_stock(AAPL, 1, price) + buy_stock(MSFT, 2, 2*price)，同一条消息
//	tool result         -> 文本回复
type scriptedModel struct {
	mu    sync.Mutex
	price float64
	calls int
	tools []*schema.ToolInfo
}

func newScriptedModel(price float64) *scriptedModel {
	return &scriptedModel{price: price}
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.calls++
	id := fmt.Sprintf("call_%d", m.calls)
	m.mu.Unlock()

	if len(input) == 0 {
		return nil, fmt.Errorf("empty input")
	}
	last := input[len(input)-1]

	switch last.Role {
	case schema.Tool:
		return schema.AssistantMessage("Tool said: "+firstLine(last.Content), nil), nil
	case schema.User:
		text := strings.ToLower(last.Content)
		switch {
		case strings.Contains(text, "both"):
			aapl, _ := json.Marshal(tools.BuyStockParams{StockName: "AAPL", Quantity: 1, TotalCost: m.price})
			msft, _ := json.Marshal(tools.BuyStockParams{StockName: "MSFT", Quantity: 2, TotalCost: 2 * m.price})
			return schema.AssistantMessage("", []schema.ToolCall{
				{ID: id + "_a", Type: "function", Function: schema.FunctionCall{Name: tools.BuyStockToolName, Arguments: string(aapl)}},
				{ID: id + "_b", Type: "function", Function: schema.FunctionCall{Name: tools.BuyStockToolName, Arguments: string(msft)}},
			}), nil
		case strings.HasPrefix(text, "buy"):
			args, _ := json.Marshal(tools.BuyStockParams{StockName: "AAPL", Quantity: 10, TotalCost: 10 * m.price})
			return toolCall(id, tools.BuyStockToolName, string(args)), nil
		case strings.Contains(text, "price"):
			return toolCall(id, tools.StockPriceToolName, `{"stock_name":"AAPL"}`), nil
		}
	}
	return schema.AssistantMessage("Hello!", nil), nil
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(infos []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = infos
	return m, nil
}

func toolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
