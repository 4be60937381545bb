package http

import (
	"bytes"
	"html/template"
	"net/http"

	"golang-backtester/internal/dto"
	"golang-backtester/pkg/common"
	"golang-backtester/pkg/utils"

	"github.com/labstack/echo/v4"
)

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Trading Strategy Backtester</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 1100px; }
fieldset { display: inline-block; vertical-align: top; margin: 0 1rem 1rem 0; }
label { display: block; margin: .3rem 0; }
table { border-collapse: collapse; margin-top: 1rem; }
td, th { border: 1px solid #ccc; padding: .25rem .6rem; text-align: right; }
.disclaimer { color: #a15c00; border: 1px solid #f0c36d; background: #fff8e1; padding: .6rem; }
.error { color: #b00020; }
h2 { font-size: 1.1rem; margin-top: 1.5rem; }
</style>
</head>
<body>
<h1>Trading Strategy Backtester</h1>
<form id="backtest">
<fieldset><legend>Market</legend>
<label>Symbol <input name="symbol" value="AAPL" required></label>
<label>Exchange <select name="exchange">{{range .Exchanges}}<option>{{.}}</option>{{end}}</select></label>
<label>Timeframe <select name="timeframe">{{range .Timeframes}}<option{{if eq . "1d"}} selected{{end}}>{{.}}</option>{{end}}</select></label>
<label>Start <input type="date" name="start_date" value="{{.StartDate}}" required></label>
<label>End <input type="date" name="end_date" value="{{.EndDate}}" required></label>
</fieldset>
<fieldset><legend>RSI + SMA strategy</legend>
<label>RSI period <input type="number" name="rsi_period" min="5" max="30" value="{{.Params.RSIPeriod}}"></label>
<label>RSI overbought <input type="number" name="rsi_overbought" min="50" max="100" value="{{.Params.RSIOverbought}}"></label>
<label>RSI oversold <input type="number" name="rsi_oversold" min="0" max="50" value="{{.Params.RSIOversold}}"></label>
<label>Fast SMA <input type="number" name="sma_fast" min="20" max="100" value="{{.Params.SMAFast}}"></label>
<label>Slow SMA <input type="number" name="sma_slow" min="100" max="300" value="{{.Params.SMASlow}}"></label>
</fieldset>
<div><button type="button" id="load-data">Load data</button> <button type="submit">Run backtest</button></div>
</form>
<div id="preview"></div>
<div id="output"></div>
<p class="disclaimer">Past performance does not guarantee future results. Backtests are simulations on
historical data and are not investment advice.</p>
<script>
const rows = [
  ["Return", s => pct(s.return_pct)],
  ["Buy & Hold Return", s => pct(s.buy_and_hold_return_pct)],
  ["Sharpe Ratio", s => num(s.sharpe_ratio)],
  ["Max. Drawdown", s => pct(s.max_drawdown_pct)],
  ["Win Rate", s => pct(s.win_rate_pct)],
  ["Profit Factor", s => num(s.profit_factor)],
  ["# Trades", s => s.trades],
  ["Equity Final", s => num(s.equity_final)],
];
const tradeColumns = [
  ["Entry", t => day(t.entry_time)],
  ["Exit", t => day(t.exit_time)],
  ["Size", t => t.size],
  ["Entry Price", t => num(t.entry_price)],
  ["Exit Price", t => num(t.exit_price)],
  ["PnL", t => num(t.pnl)],
  ["Return", t => pct(t.return_pct)],
  ["Duration", t => t.duration_text],
  ["Exit Reason", t => t.exit_reason],
];
const barColumns = [
  ["Time", b => b.time.replace("T", " ").replace("Z", "")],
  ["Open", b => num(b.open)],
  ["High", b => num(b.high)],
  ["Low", b => num(b.low)],
  ["Close", b => num(b.close)],
  ["Volume", b => b.volume],
];
function num(v) { return v === null || v === undefined ? "n/a" : Number(v).toFixed(2); }
function pct(v) { return v === null || v === undefined ? "n/a" : Number(v).toFixed(2) + "%"; }
function day(v) { return v ? v.slice(0, 10) : ""; }
function heading(text) {
  const h = document.createElement("h2");
  h.textContent = text;
  return h;
}
function errorText(message) {
  const p = document.createElement("p");
  p.className = "error";
  p.textContent = message;
  return p;
}
function grid(columns, items) {
  const table = document.createElement("table");
  const head = table.createTHead().insertRow();
  for (const [name] of columns) {
    const th = document.createElement("th");
    th.textContent = name;
    head.appendChild(th);
  }
  const body = table.createTBody();
  for (const item of items) {
    const tr = body.insertRow();
    for (const [, fn] of columns) {
      tr.insertCell().textContent = fn(item);
    }
  }
  return table;
}
function marketRequest(f) {
  return {
    symbol: f.get("symbol"), exchange: f.get("exchange"), timeframe: f.get("timeframe"),
    start_date: f.get("start_date"), end_date: f.get("end_date"),
  };
}
async function post(url, body) {
  const resp = await fetch(url, {
    method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body),
  });
  const payload = await resp.json();
  return {ok: resp.ok, payload: payload};
}
async function loadPreview(f) {
  const out = document.getElementById("preview");
  out.textContent = "Loading data...";
  const {ok, payload} = await post("/api/v1/market-data/preview", marketRequest(f));
  out.innerHTML = "";
  if (!ok) {
    out.appendChild(errorText(payload.message));
    return;
  }
  const d = payload.data;
  const p = document.createElement("p");
  p.textContent = "Data from " + day(d.from) + " to " + day(d.to) + " (" + d.bar_count + " bars)";
  out.appendChild(heading(d.symbol + " " + d.timeframe));
  out.appendChild(p);
  out.appendChild(grid(barColumns, d.last_bars || []));
}
const form = document.getElementById("backtest");
document.getElementById("load-data").addEventListener("click", () => loadPreview(new FormData(form)));
form.addEventListener("submit", async (e) => {
  e.preventDefault();
  const f = new FormData(e.target);
  loadPreview(f);
  const body = marketRequest(f);
  body.params = {
    rsi_period: +f.get("rsi_period"), rsi_overbought: +f.get("rsi_overbought"),
    rsi_oversold: +f.get("rsi_oversold"), sma_fast: +f.get("sma_fast"), sma_slow: +f.get("sma_slow"),
  };
  const out = document.getElementById("output");
  out.textContent = "Running...";
  const {ok, payload} = await post("/api/v1/backtests", body);
  out.innerHTML = "";
  if (!ok) {
    out.appendChild(errorText(payload.message));
    return;
  }
  const r = payload.data;
  const table = document.createElement("table");
  for (const [name, fn] of rows) {
    const tr = table.insertRow();
    tr.insertCell().textContent = name;
    tr.insertCell().textContent = fn(r.stats);
  }
  out.appendChild(heading("Performance"));
  out.appendChild(table);
  if (r.run_id) {
    const a = document.createElement("a");
    a.href = "/api/v1/backtests/" + r.run_id + "/chart";
    a.textContent = "Open chart";
    a.target = "_blank";
    out.appendChild(a);
  }
  out.appendChild(heading("Trade Analysis"));
  if (!r.trades || r.trades.length === 0) {
    out.appendChild(document.createTextNode("No trades were closed in this period."));
    return;
  }
  out.appendChild(grid(tradeColumns, r.trades));
});
</script>
</body>
</html>
`))

type dashboardView struct {
	Exchanges  []string
	Timeframes []string
	StartDate  string
	EndDate    string
	Params     dto.StrategyParams
}

func (h *HttpAPIHandler) SetupDashboard(e *echo.Echo) {
	e.GET("/", h.dashboard)
}

func (h *HttpAPIHandler) dashboard(c echo.Context) error {
	today := utils.TodayUTC()
	view := dashboardView{
		Exchanges:  common.GetExchangeList(),
		Timeframes: dto.GetTimeframeList(),
		StartDate:  today.AddDate(0, 0, -h.cfg.Backtest.DefaultLookbackDays).Format(utils.DateLayout),
		EndDate:    today.Format(utils.DateLayout),
		Params:     dto.DefaultStrategyParams(),
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		return h.errorResponse(c, err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
