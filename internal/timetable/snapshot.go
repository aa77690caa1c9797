package timetable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// lessonJSON is the wire shape of a Lesson in snapshot files, field names are
// the labels users see in the exported file.
type lessonJSON struct {
	Group        string  `json:"Группа"`
	Date         string  `json:"Число"`
	Weekday      string  `json:"День недели"`
	Week         flexInt `json:"Номер недели"`
	WeekdayIndex flexInt `json:"Номер дня недели"`
	Slot         flexInt `json:"Номер занятия"`
	SlotTime     string  `json:"Время занятия"`
	Subject      string  `json:"Предмет"`
	LessonType   *string `json:"Тип занятия"`
	Teacher      *string `json:"ФИО преподавателя"`
	Room         *string `json:"Номер кабинета"`
}

// flexInt accepts both 3 and "3", older snapshots stored numbers as strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	text := strings.Trim(string(data), `"`)
	if text == "" || text == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("expected a number, got %s", data)
	}
	*n = flexInt(v)
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (l Lesson) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(lessonJSON{
		Group:        l.Group,
		Date:         l.Date.Format(DateLayout),
		Weekday:      l.Weekday,
		Week:         flexInt(l.Week),
		WeekdayIndex: flexInt(l.WeekdayIndex),
		Slot:         flexInt(l.Slot),
		SlotTime:     l.SlotTime,
		Subject:      l.Subject,
		LessonType:   nullable(l.LessonType),
		Teacher:      nullable(l.Teacher),
		Room:         nullable(l.Room),
	})
}

func (l *Lesson) UnmarshalJSON(data []byte) error {
	var wire lessonJSON
	err := json.Unmarshal(data, &wire)
	if err != nil {
		return err
	}
	date, err := time.ParseInLocation(DateLayout, wire.Date, time.UTC)
	if err != nil {
		return fmt.Errorf("lesson date: %w", err)
	}
	*l = Lesson{
		Group:        wire.Group,
		Date:         date,
		Weekday:      wire.Weekday,
		WeekdayIndex: int(wire.WeekdayIndex),
		Week:         int(wire.Week),
		Slot:         int(wire.Slot),
		SlotTime:     wire.SlotTime,
		Subject:      wire.Subject,
		LessonType:   deref(wire.LessonType),
		Teacher:      deref(wire.Teacher),
		Room:         deref(wire.Room),
	}
	return nil
}

// MarshalJSON writes the aggregate as a JSON object keyed by group name, in
// aggregate order.
func (a Aggregate) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range a.groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(g.Group)
		if err != nil {
			return nil, err
		}
		lessons := g.Lessons
		if lessons == nil {
			lessons = []Lesson{}
		}
		value, err := marshalNoEscape(lessons)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keyed by group name, keeping key order.
func (a *Aggregate) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object of groups")
	}

	out := NewAggregate()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		group, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected a group name, got %v", tok)
		}
		var lessons []Lesson
		err = dec.Decode(&lessons)
		if err != nil {
			return fmt.Errorf("group %s: %w", group, err)
		}
		out.Set(group, lessons)
	}
	_, err = dec.Token()
	if err != nil {
		return err
	}

	*a = out
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeSnapshot renders the aggregate as it is stored on disk, indented by 4 spaces.
func EncodeSnapshot(agg Aggregate) ([]byte, error) {
	compact, err := marshalNoEscape(agg)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	err = json.Indent(&out, compact, "", "    ")
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// SaveSnapshot writes the aggregate to path, replacing the previous file only
// once the new one is fully written.
func SaveSnapshot(path string, agg Aggregate) error {
	data, err := EncodeSnapshot(agg)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadSnapshot reads an aggregate written by SaveSnapshot.
func LoadSnapshot(path string) (Aggregate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Aggregate{}, err
	}
	var agg Aggregate
	err = json.Unmarshal(data, &agg)
	if err != nil {
		return Aggregate{}, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return agg, nil
}
