package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-tamer/internal/model"
	"task-tamer/internal/service"
)

func (b *Bot) startCheckIn(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	user := state.User()

	prompt := "🌅 <b>Morning check-in</b>\n😴 How well did you sleep? (1 = badly, 5 = great)"
	existing, err := b.checkIns.Today(ctx, &user, b.now())
	if err != nil {
		log.Printf("check-in lookup for user %d: %v", user.ID, err)
	} else if existing != nil {
		prompt = fmt.Sprintf("🌅 You already checked in today (sleep %d/5, energy %d/5). Answering again updates it.\n😴 How well did you sleep? (1–5)",
			existing.SleepQuality, existing.EnergyLevel)
	}

	b.setConversation(from.ID, &conversationState{stage: stageSleep})
	return b.sendWithReplyMarkup(chatID, prompt, ratingKeyboard())
}

func (b *Bot) handleCheckInConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageSleep:
		rating, ok := parseRating(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick a number from 1 to 5.", ratingKeyboard())
		}
		state.checkIn.SleepQuality = rating
		state.stage = stageEnergy
		return b.sendWithReplyMarkup(msg.Chat.ID, "⚡ How's your energy right now? (1–5)", ratingKeyboard())
	case stageEnergy:
		rating, ok := parseRating(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick a number from 1 to 5.", ratingKeyboard())
		}
		state.checkIn.EnergyLevel = rating
		state.stage = stageCheckInNotes
		return b.sendWithReplyMarkup(msg.Chat.ID, "📝 Anything on your mind? (or tap «Skip»)", skipKeyboard())
	case stageCheckInNotes:
		if !isSkipInput(text) {
			state.checkIn.Notes = text
		}
		err := b.finishCheckIn(ctx, msg.Chat.ID, msg.From, state.checkIn)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}

func (b *Bot) finishCheckIn(ctx context.Context, chatID int64, from *tgbotapi.User, input service.CheckInInput) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	user := state.User()

	record, err := b.checkIns.Save(ctx, &user, input, b.now())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the check-in: %s", escape(err.Error())))
	}
	b.metrics.CheckIn()
	log.Printf("[info] check-in saved user=%d date=%s", user.ID, record.Date)

	return b.sendText(chatID, fmt.Sprintf("🌅 Check-in saved: sleep %d/5 · energy %d/5\n<i>%s</i>\n\nReady? Get today's picks with /spin.",
		record.SleepQuality, record.EnergyLevel, escape(quote())))
}

func (b *Bot) handleSpin(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	if err := state.EnsureLoaded(ctx); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	user := state.User()

	spin, err := b.spins.Today(ctx, &user, state.Tasks(), b.now())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not spin: %s", escape(err.Error())))
	}
	if spin.Fresh && len(spin.Picks) > 0 {
		b.metrics.Spin()
		log.Printf("[info] spin user=%d picks=%s", user.ID, spin.Record.Picks)
	}
	return b.sendSpin(chatID, spin, "🎲 <b>Today's picks</b>")
}

func (b *Bot) handleReroll(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	if err := state.EnsureLoaded(ctx); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	user := state.User()

	tasks := state.Tasks()
	if !hasOpenTasks(tasks) {
		return b.sendText(chatID, "Nothing to re-roll. Add a task with /newtask.")
	}

	spin, err := b.spins.Reroll(ctx, &user, tasks, b.now())
	switch {
	case errors.Is(err, service.ErrRerollLimit):
		b.metrics.Reroll("limit")
		return b.sendSpin(chatID, spin, "🚫 No re-rolls left today. These are your picks:")
	case err != nil:
		b.metrics.Reroll("error")
		return b.sendText(chatID, fmt.Sprintf("Could not re-roll, your picks are unchanged: %s", escape(err.Error())))
	}

	b.metrics.Reroll("ok")
	log.Printf("[info] reroll user=%d count=%d", user.ID, spin.Record.RerollCount)
	return b.sendSpin(chatID, spin, "🔄 <b>Fresh picks</b>")
}

func (b *Bot) sendSpin(chatID int64, spin *service.Spin, header string) error {
	if spin == nil || len(spin.Picks) == 0 {
		return b.sendText(chatID, "No open tasks to pick from. Add one with /newtask.")
	}

	var builder strings.Builder
	builder.WriteString(header)
	builder.WriteByte('\n')
	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range spin.Picks {
		mark := fmt.Sprintf("%d.", i+1)
		if task.Completed {
			mark = "✅"
		}
		builder.WriteString(fmt.Sprintf("%s %s <b>#%d</b> %s\n", mark, categoryIcon(task.Category), task.ID, escape(task.Title)))
		if !task.Completed {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏱ Focus on #%d", task.ID), cbFocusPrefix+strconv.FormatUint(uint64(task.ID), 10)),
			))
		}
	}

	left := spin.Record.RerollsLeft()
	builder.WriteString(fmt.Sprintf("\nRe-rolls left today: %d", left))
	if left > 0 {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔄 Re-roll (%d left)", left), cbReroll),
		))
	}

	if len(buttons) == 0 {
		return b.sendText(chatID, builder.String())
	}
	return b.sendWithReplyMarkup(chatID, builder.String(), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) handleCompleted(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	if err := state.EnsureLoaded(ctx); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}

	summary := service.SummarizeCompleted(state.Tasks(), b.now(), b.loc)
	if summary.Total == 0 {
		return b.sendText(chatID, "🏆 Nothing completed yet. Pick something with /spin.")
	}

	var builder strings.Builder
	builder.WriteString("🏆 <b>Completed tasks</b>\n")
	builder.WriteString(fmt.Sprintf("Today: %d · Total: %d · Urgent: %d · Important: %d\n",
		summary.Today, summary.Total, summary.Urgent, summary.Important))
	for _, group := range summary.Groups {
		builder.WriteString(fmt.Sprintf("\n<b>%s</b>\n", escape(group.Label)))
		for _, task := range group.Tasks {
			builder.WriteString(fmt.Sprintf("✅ %s %s\n", categoryIcon(task.Category), escape(task.Title)))
		}
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleReport(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	if err := state.EnsureLoaded(ctx); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	text, err := b.reminder.DailySummary(ctx, state.User(), state.Tasks(), b.now())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not build the summary: %s", escape(err.Error())))
	}
	return b.sendText(chatID, text)
}

// SendDailyReports sends a summary to every signed-in user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	now := b.now()
	for _, state := range b.sessions.All() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		user := state.User()
		if err := state.Refresh(ctx); err != nil {
			log.Printf("refresh tasks for user %d: %v", user.TelegramID, err)
			continue
		}
		text, err := b.reminder.DailySummary(ctx, user, state.Tasks(), now)
		if err != nil {
			log.Printf("build summary for user %d: %v", user.TelegramID, err)
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			log.Printf("send summary to %d: %v", user.TelegramID, err)
		}
	}
	return nil
}

func hasOpenTasks(tasks []model.Task) bool {
	for _, t := range tasks {
		if !t.Completed {
			return true
		}
	}
	return false
}
