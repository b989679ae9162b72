package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

const StockPriceToolName = "get_stock_price"

// PriceSource quotes the current price of a stock.
type PriceSource interface {
	Quote(ctx context.Context, stock string) (float64, error)
}

// RandomQuotes returns a uniform random price in [0, 100) for any stock.
type RandomQuotes struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomQuotes creates a random price source. A zero seed uses a random seed.
func NewRandomQuotes(seed uint64) *RandomQuotes {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &RandomQuotes{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Quote implements PriceSource.
func (q *RandomQuotes) Quote(_ context.Context, _ string) (float64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.rng.Float64() * 100, nil
}

// FixedQuotes serves prices from a static table keyed by upper-case symbol.
type FixedQuotes map[string]float64

// Quote implements PriceSource.
func (q FixedQuotes) Quote(_ context.Context, stock string) (float64, error) {
	price, ok := q[strings.ToUpper(stock)]
	if !ok {
		return 0, fmt.Errorf("no quote for %s", stock)
	}
	return price, nil
}

// StockPriceParams contains parameters for the stock price tool.
type StockPriceParams struct {
	StockName string `json:"stock_name" jsonschema:"description=The name of the stock to get the price of."`
}

// NewStockPriceTool returns the get_stock_price tool backed by source.
func NewStockPriceTool(source PriceSource) (tool.InvokableTool, error) {
	if source == nil {
		return nil, fmt.Errorf("price source is required")
	}

	return utils.InferTool(
		StockPriceToolName,
		"Get the stock price of a given stock name. Returns the price of the stock.",
		func(ctx context.Context, params StockPriceParams) (string, error) {
			stock := strings.TrimSpace(params.StockName)
			if stock == "" {
				return "", fmt.Errorf("stock_name cannot be empty")
			}

			price, err := source.Quote(ctx, stock)
			if err != nil {
				return "", fmt.Errorf("quote %s: %w", stock, err)
			}

			return Success(FormatAmount(price), &Metadata{Stock: stock, Price: price})
		},
	)
}
