package common

const (
	KEY_MARKET_DATA = "market_data:%s:%s:%s:%d:%d"
)

const (
	EXCHANGE_YAHOO   = "YAHOO"
	EXCHANGE_BINANCE = "BINANCE"
)

func GetExchangeList() []string {
	return []string{
		EXCHANGE_YAHOO,
		EXCHANGE_BINANCE,
	}
}

const (
	HEADER_REQUEST_ID = "X-Request-ID"
)
