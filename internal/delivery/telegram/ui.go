package telegram

import "gopkg.in/telebot.v3"

var (
	btnBacktestTimeframe   telebot.Btn = telebot.Btn{Unique: "btn_backtest_timeframe"}
	btnActionRunJob        telebot.Btn = telebot.Btn{Text: "▶️ Run now", Unique: "btn_action_run_job"}
	btnActionBackToJobList telebot.Btn = telebot.Btn{Text: "🔙 Jobs", Unique: "btn_action_back_to_job_list"}
	btnDetailJob           telebot.Btn = telebot.Btn{Unique: "btn_detail_job"}
	btnDeleteMessage       telebot.Btn = telebot.Btn{Text: "🗑 Close", Unique: "btn_delete_message"}
)

const (
	commonErrorInternal  = "Something went wrong, please try again."
	commonErrorNoJobs    = "The scheduler is disabled, enable the database to use jobs."
	commonUnknownCommand = "I don't know that command. Use /help to see what I can do."
)
