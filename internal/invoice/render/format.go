package render

import (
	"strings"

	"github.com/shopspring/decimal"
)

func formatMoney(amount float64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	return currency + " " + decimal.NewFromFloat(amount).StringFixed(2)
}

func formatQuantity(value float64) string {
	return decimal.NewFromFloat(value).Round(2).String()
}

func formatPercent(value float64) string {
	return decimal.NewFromFloat(value).Round(2).String() + "%"
}

func formatDate(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
