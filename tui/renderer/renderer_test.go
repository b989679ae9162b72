package renderer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"stockdesk/llm/agent"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func toolCallMsg(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func TestPrinter_PrintMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Plain: true})

	p.PrintMessages([]*schema.Message{
		schema.UserMessage("What is the price of AAPL?"),
		toolCallMsg("c1", "get_stock_price", `{"stock_name":"AAPL"}`),
		schema.ToolMessage("42.5\n\n<metadata stock=AAPL price=42.5 />", "c1"),
		schema.AssistantMessage("AAPL trades at 42.5.", nil),
	})

	out := buf.String()
	assert.Contains(t, out, "User: What is the price of AAPL?")
	assert.Contains(t, out, "┌─ Tool Call #1: get_stock_price")
	assert.Contains(t, out, "│ stock_name=AAPL")
	assert.Contains(t, out, "│  42.5")
	assert.NotContains(t, out, "<metadata")
	assert.Contains(t, out, "Assistant: AAPL trades at 42.5.")
}

func TestPrinter_ToolCallWithoutResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Plain: true})

	p.PrintMessages([]*schema.Message{
		toolCallMsg("c9", "buy_stock", `{"quantity":10,"stock_name":"AAPL","total_cost":1500}`),
	})

	out := buf.String()
	assert.Contains(t, out, "│ quantity=10 stock_name=AAPL total_cost=1500")
	assert.Contains(t, out, "(waiting for result)")
}

func TestPrinter_PrintResult(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Plain: true})

	p.PrintResult(&agent.Result{Interrupt: &agent.Interrupt{
		InterruptID: "abc",
		Question:    "Approve the purchase of 10 of AAPL for a total of 1500?",
	}})
	assert.Equal(t, `Interrupt(value="Approve the purchase of 10 of AAPL for a total of 1500?", id="abc")`+"\n", buf.String())

	buf.Reset()
	p.PrintResult(&agent.Result{Messages: []*schema.Message{schema.AssistantMessage("done", nil)}})
	assert.Equal(t, "Assistant: done\n", buf.String())

	buf.Reset()
	p.PrintResult(nil)
	assert.Empty(t, buf.String())
}

func TestPrinter_StyledInterrupt(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{})

	p.PrintInterrupt(&agent.Interrupt{Question: "Approve?"})
	out := buf.String()
	assert.Contains(t, out, "Approval required")
	assert.Contains(t, out, "Approve?")
	assert.NotContains(t, out, "waiting for approval")

	buf.Reset()
	p.PrintInterrupt(&agent.Interrupt{Question: "Approve?", Queued: 1})
	assert.Contains(t, buf.String(), "1 more purchase(s) waiting for approval")
}

func TestPrinter_Markdown(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Markdown: true})

	p.PrintMessages([]*schema.Message{schema.AssistantMessage("**total** is 1500", nil)})
	out := buf.String()
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "1500")
	assert.NotContains(t, out, "**")
}

func TestPrinter_PrintErrorAndSystem(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, Options{Plain: true})

	p.PrintError(errors.New("boom"))
	p.PrintError(nil)
	p.PrintSystem("thread %s", "t1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"Error: boom", "thread t1"}, lines)
}

func TestFormatArguments(t *testing.T) {
	assert.Equal(t, "", formatArguments(""))
	assert.Equal(t, "", formatArguments("{}"))
	assert.Equal(t, "a=1 b=x", formatArguments(`{"b":"x","a":1}`))
	assert.Equal(t, "not json", formatArguments("not json"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab…", Truncate("abcd", 3))
	assert.Equal(t, "你好…", Truncate("你好世界", 3))
	assert.Equal(t, "", Truncate("abc", 0))
}
