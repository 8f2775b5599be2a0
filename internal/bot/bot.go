package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-tamer/internal/app"
	"task-tamer/internal/metrics"
	"task-tamer/internal/service"
	"task-tamer/internal/timer"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageNotes
	stageCategory
	stageSleep
	stageEnergy
	stageCheckInNotes
	stageHowItWent
)

func (s conversationStage) String() string {
	switch s {
	case stageTitle:
		return "title"
	case stageNotes:
		return "notes"
	case stageCategory:
		return "category"
	case stageSleep:
		return "sleep"
	case stageEnergy:
		return "energy"
	case stageCheckInNotes:
		return "checkin_notes"
	case stageHowItWent:
		return "how_it_went"
	default:
		return "none"
	}
}

type conversationState struct {
	stage   conversationStage
	task    service.TaskInput
	checkIn service.CheckInInput
}

// sender is the part of the Telegram API the handlers talk to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the services the bot drives.
type Deps struct {
	Sessions *app.Sessions
	CheckIns *service.CheckInService
	Spins    *service.SpinService
	Focus    *service.FocusService
	Reminder *service.ReminderService
	Metrics  *metrics.Recorder
	Location *time.Location
	Clock    timer.Clock
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api      *tgbotapi.BotAPI
	out      sender
	sessions *app.Sessions
	checkIns *service.CheckInService
	spins    *service.SpinService
	focus    *service.FocusService
	reminder *service.ReminderService
	metrics  *metrics.Recorder
	loc      *time.Location
	clock    timer.Clock

	conversations map[int64]*conversationState
	confirmations map[int64]uint
	mu            sync.Mutex
}

func New(token string, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, deps)
	b.api = api
	return b, nil
}

func newBot(out sender, deps Deps) *Bot {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	clock := deps.Clock
	if clock == nil {
		clock = timer.SystemClock
	}
	return &Bot{
		out:           out,
		sessions:      deps.Sessions,
		checkIns:      deps.CheckIns,
		spins:         deps.Spins,
		focus:         deps.Focus,
		reminder:      deps.Reminder,
		metrics:       deps.Metrics,
		loc:           loc,
		clock:         clock,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]uint),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram api")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	started := time.Now()
	var (
		kind string
		err  error
	)
	switch {
	case update.CallbackQuery != nil:
		kind = "callback"
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		kind = "message"
		err = b.handleMessage(ctx, update.Message)
	default:
		return
	}
	b.metrics.ObserveUpdate(kind, err, time.Since(started))
	if err != nil {
		log.Printf("handle %s: %v", kind, err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled. Pick something from the menu.")
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if taskID, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, taskID)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		log.Printf("[info] conversation step %s from %d", state.stage, msg.From.ID)
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "I didn't catch that. Try /newtask to add a task, /spin for today's picks or /help for everything else.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "checkin":
		return b.startCheckIn(ctx, msg.Chat.ID, msg.From)
	case "newtask":
		return b.startNewTaskConversation(msg.Chat.ID, msg.From)
	case "tasks":
		return b.handleListTasks(ctx, msg.Chat.ID, msg.From)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "spin":
		return b.handleSpin(ctx, msg.Chat.ID, msg.From)
	case "reroll":
		return b.handleReroll(ctx, msg.Chat.ID, msg.From)
	case "focus":
		return b.handleFocus(ctx, msg)
	case "pause":
		return b.handlePause(msg.Chat.ID, msg.From)
	case "done":
		return b.handleDone(msg.Chat.ID, msg.From)
	case "completed":
		return b.handleCompleted(ctx, msg.Chat.ID, msg.From)
	case "report":
		return b.handleReport(ctx, msg.Chat.ID, msg.From)
	case "cancel":
		return b.handleCancel(msg.Chat.ID, msg.From)
	case "logout":
		return b.handleLogout(msg.Chat.ID, msg.From)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Have a look at /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelCheckIn):
		return true, b.startCheckIn(ctx, msg.Chat.ID, msg.From)
	case strings.ToLower(menuLabelSpin):
		return true, b.handleSpin(ctx, msg.Chat.ID, msg.From)
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(msg.Chat.ID, msg.From)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg.Chat.ID, msg.From)
	case strings.ToLower(menuLabelCompleted):
		return true, b.handleCompleted(ctx, msg.Chat.ID, msg.From)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	switch state.stage {
	case stageTitle, stageNotes, stageCategory:
		return b.handleTaskConversation(ctx, msg, state)
	case stageSleep, stageEnergy, stageCheckInNotes:
		return b.handleCheckInConversation(ctx, msg, state)
	case stageHowItWent:
		return b.handleReflection(ctx, msg)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Conversation reset. Try again from the menu.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	state, err := b.sessions.SignIn(ctx, app.Identity{
		TelegramID: msg.From.ID,
		FirstName:  msg.From.FirstName,
		LastName:   msg.From.LastName,
		Username:   msg.From.UserName,
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not sign you in: %s", escape(err.Error())))
	}
	user := state.User()

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("👋 Hi, %s!\n<b>I'm Task Tamer. Let's make today manageable.</b>\n\n", escape(user.DisplayName())))
	builder.WriteString(commandList)

	checkIn, err := b.checkIns.Today(ctx, &user, b.now())
	if err != nil {
		log.Printf("check-in lookup for user %d: %v", user.ID, err)
	} else if checkIn == nil {
		builder.WriteString("\n\n🌅 Start with a quick /checkin.")
	}
	return b.sendText(msg.Chat.ID, builder.String())
}

const commandList = "Commands:\n" +
	"• /checkin — how did you sleep, how is your energy\n" +
	"• /newtask — add a task\n" +
	"• /tasks — open tasks by category\n" +
	"• /spin — today's three picks\n" +
	"• /reroll — draw again (3 per day)\n" +
	"• /focus &lt;id&gt; [15|25|45] — start a focus timer\n" +
	"• /pause — pause or resume the timer\n" +
	"• /done — stop the timer and log the session\n" +
	"• /complete &lt;id&gt; — mark a task done\n" +
	"• /delete &lt;id&gt; — delete a task\n" +
	"• /completed — what you've finished\n" +
	"• /report — today's summary\n" +
	"• /cancel — cancel the current input\n" +
	"• /logout — sign out"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+commandList)
}

func (b *Bot) handleCancel(chatID int64, from *tgbotapi.User) error {
	b.clearConversation(from.ID)
	b.clearConfirmation(from.ID)

	text := "⏪ Input cancelled."
	if state, err := b.sessions.Current(from.ID); err == nil {
		user := state.User()
		if b.focus.Cancel(user.ID) {
			text = "⏪ Input cancelled, focus session discarded."
		}
	}
	return b.sendText(chatID, text)
}

func (b *Bot) handleLogout(chatID int64, from *tgbotapi.User) error {
	b.clearConversation(from.ID)
	b.clearConfirmation(from.ID)
	if state, err := b.sessions.Current(from.ID); err == nil {
		user := state.User()
		b.focus.Cancel(user.ID)
	}
	if !b.sessions.SignOut(from.ID) {
		return b.sendText(chatID, "You are not signed in. Send /start to begin.")
	}
	return b.sendTextWithRemove(chatID, "👋 Signed out. Send /start whenever you want to come back.")
}

// session returns the caller's state. Unknown users are pointed at /start;
// ok is false in that case and err carries any send failure.
func (b *Bot) session(chatID int64, from *tgbotapi.User) (*app.State, bool, error) {
	state, err := b.sessions.Current(from.ID)
	if errors.Is(err, app.ErrNotSignedIn) {
		return nil, false, b.sendText(chatID, "🔒 Please send /start to sign in first.")
	}
	if err != nil {
		return nil, false, err
	}
	return state, true, nil
}

func (b *Bot) now() time.Time {
	return b.clock.Now()
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) ackCallback(id string) {
	if _, err := b.out.Request(tgbotapi.NewCallback(id, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}
}

func (b *Bot) getConfirmation(userID int64) (uint, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	taskID, ok := b.confirmations[userID]
	return taskID, ok
}

func (b *Bot) setConfirmation(userID int64, taskID uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = taskID
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
