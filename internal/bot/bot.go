package bot

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"bonchassist-backend/internal/attendance"
	"bonchassist-backend/internal/components/assert"
	"bonchassist-backend/internal/components/chrono"
	"bonchassist-backend/internal/components/telemetry"
	"bonchassist-backend/internal/db"
	"bonchassist-backend/internal/timetable"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	report_bot_send    = "bot.send"
	report_bot_restore = "bot.restore"
	report_bot_store   = "bot.store"
	report_bot_update  = "bot.update"
)

// Sender is the part of the Telegram client the bot uses, *tgbotapi.BotAPI
// implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Account is one user's portal session.
type Account interface {
	attendance.Portal
	Login(ctx context.Context, login, password string) bool
}

// NewAccount creates a fresh, anonymous portal session.
type NewAccount func() (Account, error)

type Options struct {
	SemesterStart time.Time
	// DefaultGroup is shown by /timetable to users that did not pick a group.
	DefaultGroup string
	Policy       attendance.Policy
	// CommandTimeout bounds the handling of a single update.
	CommandTimeout time.Duration
}

type Bot struct {
	api        Sender
	qry        *db.Queries
	makeTx     db.MakeTx
	newAccount NewAccount
	snapshot   *timetable.Cache
	clock      chrono.TimeAPI
	tel        telemetry.API
	options    Options

	// ctx is the parent of every clicker loop.
	ctx context.Context

	mu       sync.Mutex
	users    map[int64]*user
	// accounts are clickers of accounts without a Telegram user.
	accounts []*attendance.Clicker
	wg       sync.WaitGroup
}

func New(
	ctx context.Context,
	api Sender,
	database *sql.DB,
	newAccount NewAccount,
	snapshot *timetable.Cache,
	clock chrono.TimeAPI,
	options Options,
	tel telemetry.API,
) *Bot {
	assert.NotNil(api)
	assert.NotNil(database)
	assert.NotNil(newAccount)
	assert.NotNil(snapshot)
	assert.NotNil(clock)
	assert.NotNil(tel)
	if options.CommandTimeout <= 0 {
		options.CommandTimeout = 30 * time.Second
	}
	return &Bot{
		api:        api,
		qry:        db.New(database),
		makeTx:     db.NewMakeTx(database),
		newAccount: newAccount,
		snapshot:   snapshot,
		clock:      clock,
		tel:        telemetry.NewScopedAPI("bot", tel),
		options:    options,
		ctx:        ctx,
		users:      map[int64]*user{},
	}
}

// Commands is the command menu shown by Telegram clients.
func Commands() tgbotapi.SetMyCommandsConfig {
	return tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "start", Description: "Запустить бота"},
		tgbotapi.BotCommand{Command: "login", Description: "Войти в аккаунт"},
		tgbotapi.BotCommand{Command: "logout", Description: "Удалить сохраненный аккаунт"},
		tgbotapi.BotCommand{Command: "start_lesson", Description: "Запустить автокликалку"},
		tgbotapi.BotCommand{Command: "stop_lesson", Description: "Остановить автокликалку"},
		tgbotapi.BotCommand{Command: "status", Description: "Статус автокликалки"},
		tgbotapi.BotCommand{Command: "my_account", Description: "Просмотреть сохраненные данные"},
		tgbotapi.BotCommand{Command: "group", Description: "Выбрать группу"},
		tgbotapi.BotCommand{Command: "timetable", Description: "Получить расписание"},
		tgbotapi.BotCommand{Command: "teacher", Description: "Расписание преподавателя"},
		tgbotapi.BotCommand{Command: "room", Description: "Расписание аудитории"},
	)
}

// Run handles updates until ctx is cancelled or the channel is closed. Each
// update runs in its own goroutine, updates of one user are serialized by
// that user's lock where it matters.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, b.options.CommandTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.tel.ReportBroken(report_bot_update, r)
		}
	}()

	if update.CallbackQuery != nil {
		b.processCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		b.processMessage(ctx, update.Message)
	}
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatId := msg.Chat.ID
	userId := msg.From.ID

	if !msg.IsCommand() {
		b.reply(chatId, "Используйте /login для входа или /timetable для расписания.")
		return
	}

	args := strings.Fields(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		b.reply(chatId, greeting)
	case "login":
		b.cmdLogin(ctx, msg, args)
	case "logout":
		b.cmdLogout(ctx, chatId, userId)
	case "start_lesson":
		b.cmdStartLesson(ctx, chatId, userId)
	case "stop_lesson":
		b.cmdStopLesson(ctx, chatId, userId)
	case "status":
		b.cmdStatus(chatId, userId)
	case "my_account":
		b.cmdMyAccount(ctx, chatId, userId)
	case "group":
		b.cmdGroup(ctx, chatId, userId, strings.Join(args, " "))
	case "timetable":
		b.cmdTimetable(ctx, chatId, userId, args)
	case "teacher":
		b.cmdLookup(chatId, kindTeacher, strings.Join(args, " "))
	case "room":
		b.cmdLookup(chatId, kindRoom, strings.Join(args, " "))
	default:
		b.reply(chatId, "Команда не распознана.")
	}
}

// Shutdown stops every running clicker.
func (b *Bot) Shutdown() {
	b.mu.Lock()
	users := make([]*user, 0, len(b.users))
	for _, u := range b.users {
		users = append(users, u)
	}
	accounts := b.accounts
	b.accounts = nil
	b.mu.Unlock()

	for _, u := range users {
		if c := u.currentClicker(); c != nil {
			c.Stop()
		}
	}
	for _, c := range accounts {
		c.Stop()
	}
}

func (b *Bot) reply(chatId int64, text string) {
	for _, chunk := range splitMessage(text, messageLimit) {
		b.send(tgbotapi.NewMessage(chatId, chunk))
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	_, err := b.api.Send(c)
	if err != nil {
		b.tel.ReportWarning(report_bot_send, err)
	}
}

func (b *Bot) request(c tgbotapi.Chattable) {
	_, err := b.api.Request(c)
	if err != nil {
		b.tel.ReportWarning(report_bot_send, err)
	}
}
