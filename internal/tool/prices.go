// Package tool provides the precious-metal and bitcoin price tools.
package tool

import (
	"context"
	"fmt"
	"time"
)

const (
	defaultGoldPriceURL = "https://data-asg.goldprice.org/dbXRates/USD"
	defaultBitcoinURL   = "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd"

	// goldprice.org rejects requests without a browser-ish agent.
	goldPriceUserAgent = "Mozilla/5.0"
)

// GoldSilver fetches the latest gold and silver spot prices.
type GoldSilver struct {
	client  *Client
	baseURL string
}

// NewGoldSilver creates the gold/silver price tool.
func NewGoldSilver(client *Client) *GoldSilver {
	return &GoldSilver{client: client, baseURL: defaultGoldPriceURL}
}

func (t *GoldSilver) Name() string { return "get_gold_silver_prices" }

func (t *GoldSilver) Description() string {
	return "Fetch latest gold and silver prices in USD per troy ounce"
}

func (t *GoldSilver) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	start := time.Now()

	var data goldPriceResponse
	headers := map[string]string{"User-Agent": goldPriceUserAgent}
	if err := t.client.GetJSON(ctx, t.baseURL, headers, &data); err != nil {
		return TimedResult(NewErrorResult(fmt.Errorf("price lookup failed: %w", err)), start), nil
	}

	if len(data.Items) == 0 {
		return TimedResult(NewErrorResult(fmt.Errorf("no price data in response")), start), nil
	}

	item := data.Items[0]
	result := map[string]any{
		"currency": item.Currency,
		"date_ny":  data.Date,
		"gold": map[string]any{
			"current_price":   item.GoldPrice,
			"previous_close":  item.GoldClose,
			"change_absolute": item.GoldChange,
			"change_percent":  item.GoldChangePct,
		},
		"silver": map[string]any{
			"current_price":   item.SilverPrice,
			"previous_close":  item.SilverClose,
			"change_absolute": item.SilverChange,
			"change_percent":  item.SilverChangePct,
		},
	}

	return TimedResult(NewSuccessResult(result), start), nil
}

// Bitcoin fetches the current Bitcoin price in USD.
type Bitcoin struct {
	client  *Client
	baseURL string
}

// NewBitcoin creates the bitcoin price tool.
func NewBitcoin(client *Client) *Bitcoin {
	return &Bitcoin{client: client, baseURL: defaultBitcoinURL}
}

func (t *Bitcoin) Name() string { return "get_bitcoin_price" }

func (t *Bitcoin) Description() string {
	return "Fetch the current Bitcoin price in USD"
}

func (t *Bitcoin) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	start := time.Now()

	var data coingeckoResponse
	if err := t.client.GetJSON(ctx, t.baseURL, nil, &data); err != nil {
		return TimedResult(NewErrorResult(fmt.Errorf("price lookup failed: %w", err)), start), nil
	}

	price, ok := data["bitcoin"]["usd"]
	if !ok {
		return TimedResult(NewErrorResult(fmt.Errorf("no bitcoin price in response")), start), nil
	}

	return TimedResult(NewSuccessResult(fmt.Sprintf("Bitcoin Price in USD: %v", price)), start), nil
}

// ============================================================
// Upstream API Types
// ============================================================

type goldPriceResponse struct {
	Date  string `json:"date"`
	Items []struct {
		Currency        string  `json:"curr"`
		GoldPrice       float64 `json:"xauPrice"`
		GoldClose       float64 `json:"xauClose"`
		GoldChange      float64 `json:"chgXau"`
		GoldChangePct   float64 `json:"pcXau"`
		SilverPrice     float64 `json:"xagPrice"`
		SilverClose     float64 `json:"xagClose"`
		SilverChange    float64 `json:"chgXag"`
		SilverChangePct float64 `json:"pcXag"`
	} `json:"items"`
}

type coingeckoResponse map[string]map[string]float64
