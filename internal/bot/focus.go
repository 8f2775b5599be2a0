package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-tamer/internal/service"
	"task-tamer/internal/timer"
)

// handleFocus parses "/focus <id> [minutes]".
func (b *Bot) handleFocus(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		return b.sendText(msg.Chat.ID, "Give me a task ID: /focus 12 (optionally 15, 25 or 45 minutes)")
	}
	taskID, err := parseIDArgument(args[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "The task ID must be a number.")
	}

	var d time.Duration
	if len(args) > 1 {
		minutes, err := strconv.Atoi(args[1])
		d = time.Duration(minutes) * time.Minute
		if err != nil || !timer.ValidDuration(d) {
			return b.sendText(msg.Chat.ID, "The timer runs for 15, 25 or 45 minutes.")
		}
	}
	return b.startFocus(ctx, msg.Chat.ID, msg.From, taskID, d)
}

func (b *Bot) startFocus(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint, d time.Duration) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	if err := state.EnsureLoaded(ctx); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	task, found := state.Task(taskID)
	if !found {
		return b.sendText(chatID, "Task not found.")
	}
	user := state.User()

	view, err := b.focus.Start(&user, chatID, task, d)
	switch {
	case errors.Is(err, service.ErrTaskCompleted):
		return b.sendText(chatID, "That task is already done.")
	case errors.Is(err, service.ErrFocusRunning):
		return b.sendWithReplyMarkup(chatID, "A focus session is already on.\n"+formatFocus(view), focusKeyboard())
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Could not start the timer: %s", escape(err.Error())))
	}

	log.Printf("[info] focus started id=%s user=%d task=%d minutes=%d", view.ID, user.ID, task.ID, int(view.Duration.Minutes()))
	text := fmt.Sprintf("⏱ <b>Focus: %s</b>\n%s · %d min\n<i>%s</i>",
		escape(task.Title), categoryLabel(task.Category), int(view.Duration.Minutes()), escape(quote()))
	return b.sendWithReplyMarkup(chatID, text, focusKeyboard())
}

func (b *Bot) handlePause(chatID int64, from *tgbotapi.User) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	user := state.User()

	view, err := b.focus.Toggle(user.ID)
	if errors.Is(err, service.ErrNoActiveFocus) {
		return b.sendText(chatID, "No focus session is running. Start one with /focus &lt;id&gt;.")
	}
	if err != nil {
		return err
	}
	if view.State == timer.StateFinished {
		return b.askReflection(chatID, from.ID, view)
	}
	return b.sendWithReplyMarkup(chatID, formatFocus(view), focusKeyboard())
}

func (b *Bot) handleDone(chatID int64, from *tgbotapi.User) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	user := state.User()

	view, err := b.focus.Stop(user.ID)
	if errors.Is(err, service.ErrNoActiveFocus) {
		return b.sendText(chatID, "No focus session is running. Start one with /focus &lt;id&gt;.")
	}
	if err != nil {
		return err
	}
	return b.askReflection(chatID, from.ID, view)
}

func (b *Bot) askReflection(chatID, telegramID int64, view service.FocusView) error {
	b.setConversation(telegramID, &conversationState{stage: stageHowItWent})
	text := fmt.Sprintf("🎉 Session on «%s» is over.\n📝 How did it go? (or tap «Skip»)", escape(view.Task.Title))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

// handleReflection records the finished session and completes its task.
// A failed save keeps the conversation open so the user can resend.
func (b *Bot) handleReflection(ctx context.Context, msg *tgbotapi.Message) error {
	state, ok, err := b.session(msg.Chat.ID, msg.From)
	if !ok {
		b.clearConversation(msg.From.ID)
		return err
	}
	user := state.User()

	howItWent := strings.TrimSpace(msg.Text)
	if isSkipInput(howItWent) {
		howItWent = ""
	}

	session, err := b.focus.Finish(ctx, &user, howItWent)
	if errors.Is(err, service.ErrNoActiveFocus) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "There is no focus session to log.")
	}
	if err != nil {
		return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("Could not save the session: %s\nSend your note again to retry.", escape(err.Error())), skipKeyboard())
	}
	b.clearConversation(msg.From.ID)
	b.metrics.FocusSession(session.DurationMinutes)
	log.Printf("[info] focus recorded id=%s user=%d task=%d", session.ID, user.ID, session.TaskID)

	task, err := state.CompleteTask(ctx, session.TaskID, b.now())
	switch {
	case err == nil:
		b.metrics.TaskCompleted(task.Category)
	case errors.Is(err, service.ErrTaskCompleted):
	default:
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Session saved, but the task could not be completed: %s", escape(err.Error())))
	}

	doneToday := service.CompletedToday(state.Tasks(), b.now(), b.loc)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Session saved and task completed. %d done today.\nKeep going with /spin.", doneToday))
}

// NotifyExpiredFocus tells owners of countdowns that ran out and asks for their reflection.
func (b *Bot) NotifyExpiredFocus(ctx context.Context) error {
	for _, view := range b.focus.CollectExpired() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		log.Printf("[info] focus expired id=%s user=%d", view.ID, view.UserID)
		b.setConversation(view.ChatID, &conversationState{stage: stageHowItWent})
		text := fmt.Sprintf("⏰ Time's up on «%s»!\n📝 How did it go? (or tap «Skip»)", escape(view.Task.Title))
		if err := b.sendWithReplyMarkup(view.ChatID, text, skipKeyboard()); err != nil {
			log.Printf("send focus expiry to %d: %v", view.ChatID, err)
		}
	}
	return nil
}

func formatFocus(view service.FocusView) string {
	icon := "▶️"
	switch view.State {
	case timer.StatePaused:
		icon = "⏸"
	case timer.StateFinished:
		icon = "⏹"
	}
	return fmt.Sprintf("%s <b>%s</b> · %s left · %s\n%s",
		icon, escape(view.Task.Title), timer.FormatRemaining(view.Remaining), view.State, progressBar(view.Progress, 10))
}

func progressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf(" %d%%", int(progress*100))
}
