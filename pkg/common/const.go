package common

const (
	// symbol:interval:startTime:endTime
	KEY_CANDLES = "candles:%s:%s:%d:%d"
)

// Binance kline intervals accepted by the backtest API.
func GetIntervalList() []string {
	return []string{
		"1m", "3m", "5m", "15m", "30m",
		"1h", "2h", "4h", "6h", "8h", "12h",
		"1d", "3d", "1w", "1M",
	}
}

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)
