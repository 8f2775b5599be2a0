package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"task-tamer/internal/app"
	"task-tamer/internal/model"
	"task-tamer/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbFocusPrefix    = "focus:"
	cbReroll         = "reroll"
	cbPause          = "pause"
	cbDone           = "done"
)

func (b *Bot) startNewTaskConversation(chatID int64, from *tgbotapi.User) error {
	if _, ok, err := b.session(chatID, from); !ok {
		return err
	}
	log.Printf("[info] start new task conversation user=%d", from.ID)
	b.setConversation(from.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(chatID, "🆕 New task.\n<b>Step 1:</b> what do you need to do?", cancelKeyboard())
}

func (b *Bot) handleTaskConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The title can't be empty. What do you need to do?", cancelKeyboard())
		}
		state.task.Title = text
		state.stage = stageNotes
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ <b>Step 2:</b> any notes? (or tap «Skip»)", skipKeyboard())
	case stageNotes:
		if !isSkipInput(text) {
			state.task.Notes = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 <b>Step 3:</b> pick a category.", categoryKeyboard())
	case stageCategory:
		category, ok := parseCategoryInput(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Please choose one of the categories below.", categoryKeyboard())
		}
		state.task.Category = category
		err := b.finishTaskCreation(ctx, msg.Chat.ID, msg.From, state.task)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return nil
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, chatID int64, from *tgbotapi.User, input service.TaskInput) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}

	task, err := state.AddTask(ctx, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the task: %s", escape(err.Error())))
	}
	b.metrics.TaskCreated(task.Category)
	log.Printf("[info] task created id=%d user=%d category=%s", task.ID, task.UserID, task.Category)

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", task.ID))
	summary.WriteString(fmt.Sprintf("• <b>Title:</b> %s\n", escape(task.Title)))
	if task.Notes != "" {
		summary.WriteString(fmt.Sprintf("• <b>Notes:</b> %s\n", escape(task.Notes)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s", categoryLabel(task.Category)))

	if err := b.sendText(chatID, summary.String()); err != nil {
		return err
	}
	return b.sendTaskList(chatID, state)
}

func (b *Bot) handleListTasks(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}
	if err := state.EnsureLoaded(ctx); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	user := state.User()
	log.Printf("[info] list tasks for user=%d", user.ID)
	return b.sendTaskList(chatID, state)
}

func (b *Bot) sendTaskList(chatID int64, state *app.State) error {
	groups := make(map[model.Category][]model.Task)
	open := 0
	for _, task := range state.Tasks() {
		if task.Completed {
			continue
		}
		groups[task.Category] = append(groups[task.Category], task)
		open++
	}

	if open == 0 {
		return b.sendText(chatID, "No open tasks. Add one with /newtask.")
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Open tasks</b> (%d)\n", open))
	builder.WriteString("Tap a button to complete, focus on or delete a task.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, category := range model.Categories {
		section := groups[category]
		if len(section) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", categoryLabel(category)))
		for _, task := range section {
			builder.WriteString(formatTask(task))
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 18)), cbCompletePrefix+strconv.FormatUint(uint64(task.ID), 10)),
				tgbotapi.NewInlineKeyboardButtonData("⏱", cbFocusPrefix+strconv.FormatUint(uint64(task.ID), 10)),
				tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+strconv.FormatUint(uint64(task.ID), 10)),
			))
		}
		builder.WriteByte('\n')
	}

	return b.sendWithReplyMarkup(chatID, strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a task ID: /complete 12")
	}
	return b.completeTask(ctx, msg.Chat.ID, msg.From, taskID)
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}

	task, err := state.CompleteTask(ctx, taskID, b.now())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return b.sendText(chatID, "Task not found.")
	case errors.Is(err, service.ErrTaskCompleted):
		return b.sendText(chatID, "That task is already done.")
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Could not complete the task: %s", escape(err.Error())))
	}

	b.metrics.TaskCompleted(task.Category)
	log.Printf("[info] task completed id=%d user=%d", task.ID, task.UserID)

	doneToday := service.CompletedToday(state.Tasks(), b.now(), b.loc)
	return b.sendText(chatID, fmt.Sprintf("✅ «%s» done. That's %d today. %s", escape(task.Title), doneToday, escape(quote())))
}

// handleDelete removes a task right away; the inline button asks first.
func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArgument(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give me a task ID: /delete 12")
	}
	return b.deleteTask(ctx, msg.Chat.ID, msg.From, taskID)
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	state, ok, err := b.session(chatID, from)
	if !ok {
		return err
	}

	task, found := state.Task(taskID)
	if err := state.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(chatID, "Task not found or already deleted.")
		}
		return b.sendText(chatID, fmt.Sprintf("Could not delete the task: %s", escape(err.Error())))
	}

	title := fmt.Sprintf("#%d", taskID)
	if found {
		title = task.Title
	}
	log.Printf("[info] task deleted id=%d telegram=%d", taskID, from.ID)
	return b.sendText(chatID, fmt.Sprintf("🗑 Task «%s» deleted.", escape(title)))
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
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

	b.setConfirmation(from.ID, task.ID)
	return b.sendWithReplyMarkup(chatID, fmt.Sprintf("Delete «%s» (#%d)?", escape(task.Title), task.ID), confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, taskID uint) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteTask(ctx, msg.Chat.ID, msg.From, taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Kept it.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	b.ackCallback(cb.ID)
	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback %q from %d", data, cb.From.ID)

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		taskID, err := parseTaskID(data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		return b.completeTask(ctx, chatID, cb.From, taskID)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, chatID, cb.From, taskID)
	case strings.HasPrefix(data, cbFocusPrefix):
		taskID, err := parseTaskID(data, cbFocusPrefix)
		if err != nil {
			return nil
		}
		return b.startFocus(ctx, chatID, cb.From, taskID, 0)
	case data == cbReroll:
		return b.handleReroll(ctx, chatID, cb.From)
	case data == cbPause:
		return b.handlePause(chatID, cb.From)
	case data == cbDone:
		return b.handleDone(chatID, cb.From)
	default:
		return nil
	}
}

func parseTaskID(data, prefix string) (uint, error) {
	return parseIDArgument(strings.TrimPrefix(data, prefix))
}

func parseIDArgument(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("task id must be positive")
	}
	return uint(value), nil
}
