package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockPriceTool_FixedQuotes(t *testing.T) {
	ctx := context.Background()
	tl, err := NewStockPriceTool(FixedQuotes{"AAPL": 150.5})
	require.NoError(t, err)

	info, err := tl.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, StockPriceToolName, info.Name)

	out, err := tl.InvokableRun(ctx, `{"stock_name":"aapl"}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "150.5"))
	assert.Contains(t, out, "stock=aapl")
}

func TestStockPriceTool_Errors(t *testing.T) {
	ctx := context.Background()
	tl, err := NewStockPriceTool(FixedQuotes{})
	require.NoError(t, err)

	_, err = tl.InvokableRun(ctx, `{"stock_name":"  "}`)
	assert.Error(t, err)

	_, err = tl.InvokableRun(ctx, `{"stock_name":"MSFT"}`)
	assert.Error(t, err)

	_, err = NewStockPriceTool(nil)
	assert.Error(t, err)
}

func TestRandomQuotes_Range(t *testing.T) {
	q := NewRandomQuotes(42)
	for i := 0; i < 200; i++ {
		price, err := q.Quote(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, price, 0.0)
		assert.Less(t, price, 100.0)
	}
}

func TestBuyStockTool_InterruptsWithoutDecision(t *testing.T) {
	tl, err := NewBuyStockTool()
	require.NoError(t, err)

	out, err := tl.InvokableRun(context.Background(), `{"stock_name":"AAPL","quantity":10,"total_cost":1500}`)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, IsInterrupt(err))
}

func TestIsInterrupt(t *testing.T) {
	assert.False(t, IsInterrupt(nil))
	assert.False(t, IsInterrupt(errors.New("interrupt signal: not really")))
	assert.False(t, IsInterrupt(fmt.Errorf("wrapped: %w", errors.New("interrupt signal"))))

	err := compose.Interrupt(context.Background(), PurchaseApproval{Stock: "AAPL"})
	assert.True(t, IsInterrupt(err))
	assert.True(t, IsInterrupt(fmt.Errorf("run: %w", err)))
}

func TestSettlePurchase(t *testing.T) {
	approval := PurchaseApproval{Stock: "AAPL", Quantity: 10, TotalCost: 1500}

	tests := []struct {
		decision string
		want     string
	}{
		{"yes", "Bought 10 of AAPL for a total of 1500"},
		{" YES ", "Bought 10 of AAPL for a total of 1500"},
		{"y", "Bought 10 of AAPL for a total of 1500"},
		{"no", "[DECLINED] Did not buy 10 of AAPL for a total of 1500"},
		{"maybe", "[DECLINED] Did not buy 10 of AAPL for a total of 1500"},
		{"", "[DECLINED] Did not buy 10 of AAPL for a total of 1500"},
	}

	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			out, err := settlePurchase(approval, tt.decision)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, tt.want), out)
			assert.Contains(t, out, "<metadata stock=AAPL quantity=10 total_cost=1500")
		})
	}
}

func TestSettlePurchase_FractionalCost(t *testing.T) {
	out, err := settlePurchase(PurchaseApproval{Stock: "MSFT", Quantity: 1, TotalCost: 12.5}, "yes")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Bought 1 of MSFT for a total of 12.5"), out)
}

func TestBuyStockTool_Validation(t *testing.T) {
	tl, err := NewBuyStockTool()
	require.NoError(t, err)

	for _, args := range []string{
		`{"stock_name":"","quantity":1,"total_cost":1}`,
		`{"stock_name":"AAPL","quantity":0,"total_cost":1}`,
		`{"stock_name":"AAPL","quantity":1,"total_cost":-1}`,
	} {
		_, err := tl.InvokableRun(context.Background(), args)
		assert.Error(t, err, args)
		assert.False(t, IsInterrupt(err), args)
	}
}

func TestApprovalQuestion(t *testing.T) {
	assert.Equal(t,
		"Approve the purchase of 10 of AAPL for a total of 1500.25?",
		ApprovalQuestion("AAPL", 10, 1500.25))
}

func TestErrorHandler(t *testing.T) {
	mw := ErrorHandler()

	failing := mw.Invokable(func(ctx context.Context, in *compose.ToolInput) (*compose.ToolOutput, error) {
		return nil, errors.New("[LocalFunc] failed to invoke tool, toolName=get_stock_price, err=no quote for MSFT")
	})
	out, err := failing(context.Background(), &compose.ToolInput{Name: StockPriceToolName})
	require.NoError(t, err)
	assert.Equal(t, "Error: no quote for MSFT", out.Result)

	plain := mw.Invokable(func(ctx context.Context, in *compose.ToolInput) (*compose.ToolOutput, error) {
		return nil, errors.New("boom")
	})
	out, err = plain(context.Background(), &compose.ToolInput{})
	require.NoError(t, err)
	assert.Equal(t, "Error: boom", out.Result)

	ok := mw.Invokable(func(ctx context.Context, in *compose.ToolInput) (*compose.ToolOutput, error) {
		return &compose.ToolOutput{Result: "42"}, nil
	})
	out, err = ok(context.Background(), &compose.ToolInput{})
	require.NoError(t, err)
	assert.Equal(t, "42", out.Result)
}

func TestNewStockTools(t *testing.T) {
	list, err := NewStockTools(FixedQuotes{"AAPL": 1})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestToolResult_String(t *testing.T) {
	r := &ToolResult{
		Status:   StatusDeclined,
		Content:  "Did not buy",
		Metadata: &Metadata{Stock: "AAPL", Quantity: 2, TotalCost: 10, Decision: "no"},
	}
	s := r.String()
	assert.True(t, strings.HasPrefix(s, "[DECLINED] Did not buy"))
	assert.Contains(t, s, `<metadata stock=AAPL quantity=2 total_cost=10 decision="no" />`)
	assert.Contains(t, r.JSON(), `"status": "declined"`)
}
