package model

import "strings"

// pairOverrides maps internal coin tickers to exchange trading pairs where
// the default UPPER+"USDT" construction would be wrong or ambiguous.
var pairOverrides = map[string]string{
	"MIOTA": "IOTAUSDT",
	"BCC":   "BCHUSDT",
	"XBT":   "BTCUSDT",
	"WBTC":  "BTCUSDT",
	"USDT":  "USDCUSDT", // no USDTUSDT pair; quote against USDC
}

// Pair translates an internal coin ticker to the exchange pairing convention.
// Unknown tickers fall back to UPPER(ticker)+"USDT".
func Pair(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if mapped, ok := pairOverrides[t]; ok {
		return mapped
	}
	return t + "USDT"
}
