package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang-backtester/internal/model"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/utils"

	"gopkg.in/telebot.v3"
)

const jobTimeLayout = "01/02 15:04 MST"

func statusIcon(status model.TaskExecutionStatus) string {
	switch status {
	case model.StatusRunning:
		return "🟡"
	case model.StatusFailed:
		return "🔴"
	case model.StatusTimeout:
		return "🟠"
	default:
		return "🟢"
	}
}

func formatJobDetail(job model.Job) string {
	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("<b>%s</b>\n\n", job.Name))
	if job.Description != "" {
		msg.WriteString(fmt.Sprintf("🔍 %s\n\n", job.Description))
	}

	msg.WriteString("📅 Schedule:\n")
	for _, schedule := range job.Schedules {
		msg.WriteString(fmt.Sprintf(" • <code>%s</code>\n", schedule.CronExpression))
		if schedule.LastExecution.Valid {
			msg.WriteString(fmt.Sprintf("   Last: %s\n", schedule.LastExecution.Time.UTC().Format(jobTimeLayout)))
		} else {
			msg.WriteString("   Last: never\n")
		}
		if schedule.NextExecution.Valid {
			msg.WriteString(fmt.Sprintf("   Next: %s\n", schedule.NextExecution.Time.UTC().Format(jobTimeLayout)))
		} else {
			msg.WriteString("   Next: on the next tick\n")
		}
	}

	msg.WriteString("\n📜 Recent executions:\n")
	if len(job.Histories) == 0 {
		msg.WriteString("none\n")
	}
	for idx, history := range job.Histories {
		icon := statusIcon(history.Status)
		startedAt := history.StartedAt.UTC().Format(jobTimeLayout)
		if !history.CompletedAt.Valid {
			msg.WriteString(fmt.Sprintf("%d. %s %s - %s\n", idx+1, icon, startedAt, strings.ToUpper(string(history.Status))))
			continue
		}
		duration := history.CompletedAt.Time.Sub(history.StartedAt)
		msg.WriteString(fmt.Sprintf("%d. %s %s - %d | %s (%.1fs)\n", idx+1, icon, startedAt, history.ExitCode.Int32, strings.ToUpper(string(history.Status)), duration.Seconds()))
	}
	return msg.String()
}

func (t *TelegramBotHandler) handleScheduler(ctx context.Context, c telebot.Context) error {
	if t.service.SchedulerService == nil {
		_, err := t.telegram.Send(ctx, c, commonErrorNoJobs)
		return err
	}

	jobs, err := t.service.SchedulerService.GetJobSchedule(ctx, model.GetJobParam{
		IsActive: utils.ToPointer(true),
	})
	if err != nil {
		t.log.ErrorContext(ctx, "failed to get jobs", logger.ErrorField(err))
		_, err = t.telegram.Send(ctx, c, commonErrorInternal)
		return err
	}

	if len(jobs) == 0 {
		_, err = t.telegram.Send(ctx, c, "There are no active jobs.")
		return err
	}

	menu := &telebot.ReplyMarkup{}
	rows := []telebot.Row{}
	for _, job := range jobs {
		btn := menu.Data(job.Name, btnDetailJob.Unique, strconv.FormatUint(uint64(job.ID), 10))
		rows = append(rows, menu.Row(btn))
	}
	rows = append(rows, menu.Row(menu.Data(btnDeleteMessage.Text, btnDeleteMessage.Unique)))
	menu.Inline(rows...)

	msg := "📋 Active jobs:\n\n<i>👉 Pick a job to see its history or run it now</i>"
	if c.Callback() != nil {
		return c.Edit(msg, menu, telebot.ModeHTML)
	}
	_, err = t.telegram.Send(ctx, c, msg, menu, telebot.ModeHTML)
	return err
}

func (t *TelegramBotHandler) callbackJobID(ctx context.Context, c telebot.Context) (uint, bool) {
	if err := c.Respond(); err != nil {
		t.log.WarnContext(ctx, "Failed to answer callback", logger.ErrorField(err))
	}
	jobID, err := strconv.ParseUint(c.Data(), 10, 64)
	if err != nil {
		t.log.ErrorContext(ctx, "failed to parse job id", logger.ErrorField(err), logger.StringField("data", c.Data()))
		return 0, false
	}
	return uint(jobID), true
}

func (t *TelegramBotHandler) handleBtnDetailJob(ctx context.Context, c telebot.Context) error {
	if t.service.SchedulerService == nil {
		return c.Edit(commonErrorNoJobs)
	}
	jobID, ok := t.callbackJobID(ctx, c)
	if !ok {
		return c.Edit(commonErrorInternal)
	}

	jobs, err := t.service.SchedulerService.GetJobSchedule(ctx, model.GetJobParam{
		IDs: []uint{jobID},
		WithTaskHistory: &model.GetTaskExecutionHistoryParam{
			Limit: utils.ToPointer(5),
		},
	})
	if err != nil {
		t.log.ErrorContext(ctx, "failed to get job by id", logger.ErrorField(err))
		return c.Edit(commonErrorInternal)
	}
	if len(jobs) == 0 {
		return c.Edit("Job not found.")
	}

	job := jobs[0]
	menu := &telebot.ReplyMarkup{}
	btnBackJobList := menu.Data(btnActionBackToJobList.Text, btnActionBackToJobList.Unique)
	btnRun := menu.Data(btnActionRunJob.Text, btnActionRunJob.Unique, strconv.FormatUint(uint64(job.ID), 10))
	menu.Inline(menu.Row(btnRun, btnBackJobList))

	return c.Edit(formatJobDetail(job), menu, telebot.ModeHTML)
}

func (t *TelegramBotHandler) handleBtnActionRunJob(ctx context.Context, c telebot.Context) error {
	if t.service.SchedulerService == nil {
		return c.Edit(commonErrorNoJobs)
	}
	jobID, ok := t.callbackJobID(ctx, c)
	if !ok {
		return c.Edit(commonErrorInternal)
	}

	if err := t.service.SchedulerService.RunJobTask(ctx, jobID); err != nil {
		t.log.ErrorContext(ctx, "failed to run job task", logger.ErrorField(err), logger.IntField("job_id", int(jobID)))
		_, err = t.telegram.Send(ctx, c, commonErrorInternal)
		return err
	}
	return t.handleScheduler(ctx, c)
}

func (t *TelegramBotHandler) handleBtnActionBackToJobList(ctx context.Context, c telebot.Context) error {
	if err := c.Respond(); err != nil {
		t.log.WarnContext(ctx, "Failed to answer callback", logger.ErrorField(err))
	}
	return t.handleScheduler(ctx, c)
}
