package telegram

import "time"

const (
	UserStateKey = "user_state:%d"

	StateIdle = iota // 0

	// /backtest conversation
	StateWaitingBacktestSymbol = 1

	stateExpiration = 10 * time.Minute
)
