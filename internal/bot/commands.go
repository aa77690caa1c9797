package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"bonchassist-backend/internal/attendance"
	"bonchassist-backend/internal/db"
	"bonchassist-backend/internal/timetable"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	greeting = "Привет! Бот отмечает посещаемость в личном кабинете СПбГУТ и показывает расписание.\n\n" +
		"/login <email> <пароль> - войти в личный кабинет\n" +
		"/logout - удалить сохраненный аккаунт\n" +
		"/start_lesson - запустить автокликалку\n" +
		"/stop_lesson - остановить автокликалку\n" +
		"/status - статус автокликалки\n" +
		"/group <группа> - выбрать группу\n" +
		"/timetable [неделя] - расписание группы\n" +
		"/teacher <фамилия> - расписание преподавателя\n" +
		"/room <аудитория> - расписание аудитории"

	textNeedLogin      = "Сначала авторизуйтесь с помощью /login."
	textLoginUsage     = "Используйте: /login <email> <password>"
	textLoginOk        = "Авторизация прошла успешно!"
	textLoginRejected  = "Ошибка авторизации: неверный логин или пароль."
	textLoginFailed    = "Ошибка авторизации: личный кабинет недоступен, попробуйте позже."
	textClickerStarted = "Автокликалка запущена."
	textClickerStopped = "Автокликалка остановлена."
	textAlreadyRunning = "Автокликалка уже запущена."
	textAlreadyStopped = "Автокликалка уже остановлена."
	textNoAccount      = "У вас нет сохраненного аккаунта."
	textLoggedOut      = "Аккаунт удален, автокликалка остановлена."
	textStorageFailed  = "Не удалось сохранить настройки, попробуйте позже."
)

func (b *Bot) cmdLogin(ctx context.Context, msg *tgbotapi.Message, args []string) {
	chatId := msg.Chat.ID
	if len(args) != 2 {
		b.reply(chatId, textLoginUsage)
		return
	}
	// the command carries a password, it should not stay in the chat history
	b.request(tgbotapi.NewDeleteMessage(chatId, msg.MessageID))

	login, password := args[0], args[1]
	err := b.login(ctx, msg.From.ID, login, password)
	if errors.Is(err, errLoginRejected) {
		b.reply(chatId, textLoginRejected)
		return
	}
	if err != nil {
		b.tel.ReportWarning(report_bot_update, "login", err)
		b.reply(chatId, textLoginFailed)
		return
	}

	running := false
	if clicker := b.loggedIn(msg.From.ID); clicker != nil {
		running = clicker.Status() == attendance.Running
	}
	err = b.storeLogin(ctx, msg.From.ID, login, password, running)
	if err != nil {
		b.tel.ReportBroken(report_bot_store, err)
		b.reply(chatId, textStorageFailed)
		return
	}
	b.reply(chatId, textLoginOk)
}

// storeLogin saves the credentials together with the state of the user's
// clicker.
func (b *Bot) storeLogin(ctx context.Context, userId int64, login, password string, running bool) error {
	tx, discard, commit, err := b.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	now := b.clock.Now().Unix()
	err = tx.UpsertUser(ctx, db.UpsertUserParams{
		TelegramID: userId,
		Login:      login,
		Password:   password,
		UpdatedAt:  now,
	})
	if err != nil {
		return err
	}
	err = tx.SetAutostart(ctx, db.SetAutostartParams{
		Autostart:  running,
		UpdatedAt:  now,
		TelegramID: userId,
	})
	if err != nil {
		return err
	}
	return commit()
}

func (b *Bot) cmdLogout(ctx context.Context, chatId, userId int64) {
	deleted, err := b.deleteUser(ctx, userId)
	if err != nil {
		b.tel.ReportBroken(report_bot_store, err)
		b.reply(chatId, textStorageFailed)
		return
	}
	b.logout(userId)
	if !deleted {
		b.reply(chatId, textNoAccount)
		return
	}
	b.reply(chatId, textLoggedOut)
}

// deleteUser removes the stored user, it reports false when there was none.
func (b *Bot) deleteUser(ctx context.Context, userId int64) (bool, error) {
	tx, discard, commit, err := b.makeTx(ctx)
	if err != nil {
		return false, err
	}
	defer discard()

	_, err = tx.GetUser(ctx, userId)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = tx.DeleteUser(ctx, userId)
	if err != nil {
		return false, err
	}
	return true, commit()
}

func (b *Bot) cmdStartLesson(ctx context.Context, chatId, userId int64) {
	clicker := b.loggedIn(userId)
	if clicker == nil {
		b.reply(chatId, textNeedLogin)
		return
	}
	if !clicker.Start(b.ctx) {
		b.reply(chatId, textAlreadyRunning)
		return
	}
	b.setAutostart(ctx, userId, true)
	b.reply(chatId, textClickerStarted)
}

func (b *Bot) cmdStopLesson(ctx context.Context, chatId, userId int64) {
	clicker := b.loggedIn(userId)
	if clicker == nil {
		b.reply(chatId, textNeedLogin)
		return
	}
	if !clicker.Stop() {
		b.reply(chatId, textAlreadyStopped)
		return
	}
	b.setAutostart(ctx, userId, false)
	b.reply(chatId, textClickerStopped)
}

func (b *Bot) setAutostart(ctx context.Context, userId int64, autostart bool) {
	err := b.qry.SetAutostart(ctx, db.SetAutostartParams{
		Autostart:  autostart,
		UpdatedAt:  b.clock.Now().Unix(),
		TelegramID: userId,
	})
	if err != nil {
		b.tel.ReportBroken(report_bot_store, err)
	}
}

func (b *Bot) cmdStatus(chatId, userId int64) {
	clicker := b.loggedIn(userId)
	if clicker == nil {
		b.reply(chatId, textNeedLogin)
		return
	}

	var out strings.Builder
	if clicker.Status() == attendance.Running {
		out.WriteString(textClickerStarted)
	} else {
		out.WriteString(textClickerStopped)
	}
	stats := clicker.Stats()
	fmt.Fprintf(&out, "\nОтметок: %d", stats.Clicks)
	if !stats.LastTick.IsZero() {
		fmt.Fprintf(&out, "\nПоследняя проверка: %s", stats.LastTick.In(b.clock.Location()).Format(time.DateTime))
	}
	if stats.LastError != "" {
		fmt.Fprintf(&out, "\nПоследняя ошибка: %s", stats.LastError)
	}
	b.reply(chatId, out.String())
}

func (b *Bot) cmdMyAccount(ctx context.Context, chatId, userId int64) {
	stored, err := b.qry.GetUser(ctx, userId)
	if errors.Is(err, sql.ErrNoRows) {
		b.reply(chatId, textNoAccount)
		return
	}
	if err != nil {
		b.tel.ReportBroken(report_bot_store, err)
		b.reply(chatId, textStorageFailed)
		return
	}

	group := stored.GroupName
	if group == "" {
		group = "не выбрана"
	}
	autostart := "нет"
	if stored.Autostart {
		autostart = "да"
	}
	b.reply(chatId, fmt.Sprintf(
		"Ваш сохраненный email: %s\nГруппа: %s\nАвтозапуск кликалки: %s",
		stored.Login, group, autostart,
	))
}

func (b *Bot) cmdGroup(ctx context.Context, chatId, userId int64, name string) {
	if name == "" {
		b.reply(chatId, "Используйте: /group <название группы>")
		return
	}
	_, err := b.qry.GetUser(ctx, userId)
	if errors.Is(err, sql.ErrNoRows) {
		b.reply(chatId, textNeedLogin)
		return
	}
	if err != nil {
		b.tel.ReportBroken(report_bot_store, err)
		b.reply(chatId, textStorageFailed)
		return
	}

	agg := b.snapshot.Current()
	if agg.Len() > 0 {
		if _, ok := agg.Lookup(name); !ok {
			b.reply(chatId, notFound(fmt.Sprintf("Группа «%s» не найдена.", name), timetable.Suggest(agg.GroupNames(), name, suggestions)))
			return
		}
	}

	err = b.qry.SetGroup(ctx, db.SetGroupParams{
		GroupName:  name,
		UpdatedAt:  b.clock.Now().Unix(),
		TelegramID: userId,
	})
	if err != nil {
		b.tel.ReportBroken(report_bot_store, err)
		b.reply(chatId, textStorageFailed)
		return
	}
	b.reply(chatId, fmt.Sprintf("Группа %s сохранена.", name))
}

const suggestions = 5

func notFound(text string, candidates []string) string {
	if len(candidates) > 0 {
		text += "\nВозможно, вы имели в виду:\n" + strings.Join(candidates, "\n")
	}
	return text
}
