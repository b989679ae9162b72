package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const BuyStockToolName = "buy_stock"

// PurchaseApproval 是 buy_stock 中断时携带的信息，会随 checkpoint 一起序列化
type PurchaseApproval struct {
	Stock     string
	Quantity  int
	TotalCost float64
	Question  string
}

func init() {
	// 注册到 eino 的序列化器，使其可以在 checkpoint 中保存
	schema.RegisterName[PurchaseApproval]("stockdesk.PurchaseApproval")
}

// Approved reports whether a decision token approves the purchase.
func Approved(decision string) bool {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "yes", "y":
		return true
	default:
		return false
	}
}

// BuyStockParams contains parameters for the buy_stock tool.
type BuyStockParams struct {
	StockName string  `json:"stock_name" jsonschema:"description=The name of the stock to buy."`
	Quantity  int     `json:"quantity" jsonschema:"description=The quantity of the stock to buy."`
	TotalCost float64 `json:"total_cost" jsonschema:"description=The total cost of the stock."`
}

// ApprovalQuestion formats the question shown to the human approver.
func ApprovalQuestion(stock string, quantity int, totalCost float64) string {
	return fmt.Sprintf("Approve the purchase of %d of %s for a total of %s?", quantity, stock, FormatAmount(totalCost))
}

// NewBuyStockTool returns the buy_stock tool. Its first execution interrupts the
// graph. The decision is delivered on resume with compose.ResumeWithData addressed
// to that interrupt's ID, so each buy_stock call only sees its own decision.
func NewBuyStockTool() (tool.InvokableTool, error) {
	return utils.InferTool(
		BuyStockToolName,
		"Buy a given quantity of a given stock. Requires human approval before the purchase is made.",
		func(ctx context.Context, params *BuyStockParams) (string, error) {
			stock := strings.TrimSpace(params.StockName)
			if stock == "" {
				return "", fmt.Errorf("stock_name cannot be empty")
			}
			if params.Quantity <= 0 {
				return "", fmt.Errorf("quantity must be positive, got %d", params.Quantity)
			}
			if params.TotalCost < 0 {
				return "", fmt.Errorf("total_cost cannot be negative, got %s", FormatAmount(params.TotalCost))
			}

			approval := PurchaseApproval{
				Stock:     stock,
				Quantity:  params.Quantity,
				TotalCost: params.TotalCost,
				Question:  ApprovalQuestion(stock, params.Quantity, params.TotalCost),
			}

			// 第一次调用：触发中断
			wasInterrupted, _, _ := compose.GetInterruptState[any](ctx)
			if !wasInterrupted {
				return "", compose.Interrupt(ctx, approval)
			}

			// 恢复的是别的中断，继续等待自己的审批
			isTarget, hasData, decision := compose.GetResumeContext[string](ctx)
			if !isTarget {
				return "", compose.Interrupt(ctx, approval)
			}
			if !hasData {
				decision = ""
			}

			return settlePurchase(approval, decision)
		},
	)
}

// settlePurchase 根据人工决策给出购买结果
func settlePurchase(a PurchaseApproval, decision string) (string, error) {
	md := &Metadata{
		Stock:     a.Stock,
		Quantity:  a.Quantity,
		TotalCost: a.TotalCost,
		Decision:  decision,
	}
	cost := FormatAmount(a.TotalCost)

	if Approved(decision) {
		return Success(fmt.Sprintf("Bought %d of %s for a total of %s", a.Quantity, a.Stock, cost), md)
	}
	return Declined(fmt.Sprintf("Did not buy %d of %s for a total of %s", a.Quantity, a.Stock, cost), md)
}

// NewStockTools returns both stock tools wired to the given price source.
func NewStockTools(source PriceSource) ([]tool.BaseTool, error) {
	priceTool, err := NewStockPriceTool(source)
	if err != nil {
		return nil, fmt.Errorf("create %s tool: %w", StockPriceToolName, err)
	}
	buyTool, err := NewBuyStockTool()
	if err != nil {
		return nil, fmt.Errorf("create %s tool: %w", BuyStockToolName, err)
	}
	return []tool.BaseTool{priceTool, buyTool}, nil
}
