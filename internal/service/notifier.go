package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-backtester/internal/dto"
	"golang-backtester/pkg/telegram"
	"golang-backtester/pkg/utils"
)

// MessageSender delivers a text message to a chat.
type MessageSender interface {
	SendMessageChat(ctx context.Context, chatID int64, message string, opts ...interface{}) error
}

type Notifier struct {
	sender MessageSender
	chatID int64
}

func NewNotifier(sender MessageSender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

func (n *Notifier) NotifyBacktest(ctx context.Context, result *dto.BacktestResult) error {
	return n.sender.SendMessageChat(ctx, n.chatID, FormatBacktestSummary(result))
}

func (n *Notifier) NotifyFailure(ctx context.Context, jobName string, err error, data string) error {
	return n.sender.SendMessageChat(ctx, n.chatID, telegram.FormatErrorAlertMessage(time.Now(), jobName, err.Error(), data))
}

// FormatBacktestSummary renders the headline metrics of a run as plain text.
func FormatBacktestSummary(r *dto.BacktestResult) string {
	st := r.Stats
	var b strings.Builder

	fmt.Fprintf(&b, "📈 %s %s  %s → %s\n", r.Symbol, r.Timeframe, r.StartDate, r.EndDate)
	fmt.Fprintf(&b, "RSI(%d) %g/%g · SMA %d/%d\n\n",
		r.Params.RSIPeriod, r.Params.RSIOversold, r.Params.RSIOverbought, r.Params.SMAFast, r.Params.SMASlow)
	fmt.Fprintf(&b, "Return: %s\n", utils.FormatPercentage(st.ReturnPct))
	fmt.Fprintf(&b, "Buy & Hold: %s\n", utils.FormatPercentage(st.BuyAndHoldReturnPct))
	fmt.Fprintf(&b, "Final Equity: %s\n", utils.FormatMoney(st.EquityFinal))
	fmt.Fprintf(&b, "Sharpe Ratio: %s\n", utils.FormatOptional(st.SharpeRatio, "%.2f"))
	fmt.Fprintf(&b, "Max Drawdown: %.2f%%\n", st.MaxDrawdownPct)
	fmt.Fprintf(&b, "Win Rate: %s\n", utils.FormatOptional(st.WinRatePct, "%.2f%%"))
	fmt.Fprintf(&b, "Profit Factor: %s\n", utils.FormatOptional(st.ProfitFactor, "%.2f"))
	fmt.Fprintf(&b, "Trades: %d\n", st.Trades)
	if r.RunID != 0 {
		fmt.Fprintf(&b, "\nRun #%d", r.RunID)
	}
	return b.String()
}
