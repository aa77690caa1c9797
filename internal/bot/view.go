package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"bonchassist-backend/internal/timetable"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type viewKind string

const (
	kindGroup   viewKind = "g"
	kindTeacher viewKind = "t"
	kindRoom    viewKind = "r"
)

// MaxWeek is the last week the week navigation goes to.
const MaxWeek = 50

const (
	callbackPrefix = "tt"
	// Telegram rejects callback data longer than this.
	callbackDataLimit = 64
)

// view is one week of one group, teacher or room.
type view struct {
	kind  viewKind
	query string
	week  int
}

func (v view) callbackData() (string, bool) {
	data := strings.Join([]string{callbackPrefix, string(v.kind), strconv.Itoa(v.week), v.query}, "|")
	return data, len(data) <= callbackDataLimit
}

func parseCallbackData(data string) (view, error) {
	parts := strings.SplitN(data, "|", 4)
	if len(parts) != 4 || parts[0] != callbackPrefix {
		return view{}, fmt.Errorf("unknown callback %q", data)
	}
	kind := viewKind(parts[1])
	switch kind {
	case kindGroup, kindTeacher, kindRoom:
	default:
		return view{}, fmt.Errorf("unknown view kind %q", parts[1])
	}
	week, err := strconv.Atoi(parts[2])
	if err != nil {
		return view{}, fmt.Errorf("callback week: %w", err)
	}
	return view{kind: kind, query: parts[3], week: clampWeek(week)}, nil
}

func clampWeek(week int) int {
	return max(0, min(week, MaxWeek))
}

func (b *Bot) currentWeek() int {
	return clampWeek(timetable.CurrentWeek(b.options.SemesterStart, b.clock.Now()))
}

func (b *Bot) cmdTimetable(ctx context.Context, chatId, userId int64, args []string) {
	group := b.options.DefaultGroup
	stored, err := b.qry.GetUser(ctx, userId)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		b.tel.ReportBroken(report_bot_store, err)
	}
	if err == nil && stored.GroupName != "" {
		group = stored.GroupName
	}
	if group == "" {
		b.reply(chatId, "Выберите группу командой /group <название группы>.")
		return
	}

	week := b.currentWeek()
	if len(args) > 0 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			b.reply(chatId, "Используйте: /timetable [номер недели]")
			return
		}
		week = clampWeek(parsed)
	}
	b.sendView(chatId, view{kind: kindGroup, query: group, week: week})
}

func (b *Bot) cmdLookup(chatId int64, kind viewKind, query string) {
	if query == "" {
		if kind == kindTeacher {
			b.reply(chatId, "Используйте: /teacher <фамилия преподавателя>")
		} else {
			b.reply(chatId, "Используйте: /room <номер аудитории>")
		}
		return
	}
	b.sendView(chatId, view{kind: kind, query: query, week: b.currentWeek()})
}

func (b *Bot) sendView(chatId int64, v view) {
	text, keyboard := b.renderView(v)
	chunks := splitMessage(text, messageLimit)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatId, chunk)
		if i == len(chunks)-1 && keyboard != nil {
			msg.ReplyMarkup = *keyboard
		}
		b.send(msg)
	}
}

func (b *Bot) processCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	v, err := parseCallbackData(cb.Data)
	if err != nil {
		b.tel.ReportDebug("ignore callback", cb.Data, err)
		b.request(tgbotapi.NewCallback(cb.ID, "Неизвестная кнопка"))
		return
	}
	if cb.Message != nil {
		text, keyboard := b.renderView(v)
		// an edited message cannot grow into several, keep the first chunk
		text = splitMessage(text, messageLimit)[0]
		if keyboard != nil {
			b.send(tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, *keyboard))
		} else {
			b.send(tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text))
		}
	}
	b.request(tgbotapi.NewCallback(cb.ID, ""))
}

// renderView returns the text of a view and, when the view was found, its
// week navigation keyboard.
func (b *Bot) renderView(v view) (string, *tgbotapi.InlineKeyboardMarkup) {
	agg := b.snapshot.Current()
	if agg.Len() == 0 {
		return "Расписание ещё не загружено, попробуйте позже.", nil
	}

	var lessons []timetable.Lesson
	var title string
	switch v.kind {
	case kindGroup:
		found, ok := agg.Lookup(v.query)
		if !ok {
			return notFound(
				fmt.Sprintf("Группа «%s» не найдена.", v.query),
				timetable.Suggest(agg.GroupNames(), v.query, suggestions),
			), nil
		}
		lessons = found
		title = "Группа " + v.query
	case kindTeacher:
		lessons = timetable.ByTeacher(agg, v.query)
		if len(lessons) == 0 {
			return notFound(
				fmt.Sprintf("Преподаватель «%s» не найден.", v.query),
				timetable.Suggest(timetable.TeacherNames(agg), v.query, suggestions),
			), nil
		}
		title = "Преподаватель " + v.query
	case kindRoom:
		lessons = timetable.ByClassroom(agg, v.query)
		if len(lessons) == 0 {
			return notFound(
				fmt.Sprintf("Аудитория «%s» не найдена.", v.query),
				timetable.Suggest(timetable.RoomNames(agg), v.query, suggestions),
			), nil
		}
		title = "Аудитория " + v.query
	}

	week := v.week
	text := fmt.Sprintf("%s, неделя %d\n\n%s", title, week, timetable.Render(lessons, &week))
	return text, b.weekKeyboard(v)
}

func (b *Bot) weekKeyboard(v view) *tgbotapi.InlineKeyboardMarkup {
	button := func(label string, week int) (tgbotapi.InlineKeyboardButton, bool) {
		target := v
		target.week = week
		data, ok := target.callbackData()
		return tgbotapi.NewInlineKeyboardButtonData(label, data), ok
	}

	var navigation []tgbotapi.InlineKeyboardButton
	if v.week > 0 {
		prev, ok := button("⬅️ Предыдущая неделя", v.week-1)
		if !ok {
			return nil
		}
		navigation = append(navigation, prev)
	}
	if v.week < MaxWeek {
		next, ok := button("Следующая неделя ➡️", v.week+1)
		if !ok {
			return nil
		}
		navigation = append(navigation, next)
	}
	current, ok := button("Эта неделя", b.currentWeek())
	if !ok {
		return nil
	}

	rows := [][]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardRow(current)}
	if len(navigation) > 0 {
		rows = append([][]tgbotapi.InlineKeyboardButton{navigation}, rows...)
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &keyboard
}
