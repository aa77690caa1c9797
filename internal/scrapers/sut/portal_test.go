package sut

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"bonchassist-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

const deniedBody = "У Вас нет прав доступа. Или необходимо перезагрузить приложение.."

// fakePortal imitates the parts of the portal the client talks to.
type fakePortal struct {
	*httptest.Server

	login    string
	password string

	mu            sync.Mutex
	authenticated map[string]bool
	clicks        []string
	logins        int
	groupPages    int
	// timetables maps a group id to its page, ids missing from the map answer 500.
	timetables map[string]string
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{
		login:         "student@sut.ru",
		password:      "hunter2",
		authenticated: map[string]bool{},
		timetables:    map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/cabinet/", p.handleCabinet)
	mux.HandleFunc("/cabinet/lib/autentificationok.php", p.handleAuth)
	mux.HandleFunc("/cabinet/project/cabinet/forms/raspisanie.php", p.handleAttendance)
	mux.HandleFunc("/raspisanie_all_new", p.handleListing)
	mux.HandleFunc("/raspisanie_all_new.php", p.handleTimetable)
	mux.HandleFunc("/groups", p.handleGroups)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func (p *fakePortal) options() Options {
	options := DefaultOptions()
	options.CabinetURL = p.URL + "/cabinet/"
	options.AuthURL = p.URL + "/cabinet/lib/autentificationok.php"
	options.AttendanceURL = p.URL + "/cabinet/project/cabinet/forms/raspisanie.php"
	options.ListingURL = p.URL + "/raspisanie_all_new"
	options.TimetableURL = p.URL + "/raspisanie_all_new.php"
	options.GroupsURL = p.URL + "/groups"
	options.Timeout = 2 * time.Second
	options.SemesterStart = semesterStart
	return options
}

func (p *fakePortal) newSession(t *testing.T) *Session {
	session, err := NewSession(p.options(), &telemetry.Recorder{})
	require.NoError(t, err)
	return session
}

func (p *fakePortal) sid(r *http.Request) string {
	c, err := r.Cookie("sid")
	if err != nil {
		return ""
	}
	return c.Value
}

// expire drops every authenticated session.
func (p *fakePortal) expire() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authenticated = map[string]bool{}
}

func (p *fakePortal) handleCabinet(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("login") {
	case "no":
		p.mu.Lock()
		p.logins++
		sid := fmt.Sprintf("s%d", p.logins)
		p.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: sid, Path: "/"})
		fmt.Fprint(w, "<html>login</html>")
	case "yes":
		fmt.Fprint(w, "<html>cabinet</html>")
	default:
		http.NotFound(w, r)
	}
}

func (p *fakePortal) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sid := p.sid(r)
	q := r.URL.Query()
	if sid == "" || q.Get("users") != p.login || q.Get("parole") != p.password {
		fmt.Fprint(w, "0")
		return
	}
	p.mu.Lock()
	p.authenticated[sid] = true
	p.mu.Unlock()
	fmt.Fprint(w, "1")
}

func (p *fakePortal) handleAttendance(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authenticated[p.sid(r)] {
		fmt.Fprint(w, deniedBody)
		return
	}
	if r.Method == http.MethodPost {
		q := r.URL.Query()
		if q.Get("open") == "1" {
			p.clicks = append(p.clicks, q.Get("rasp")+"@"+q.Get("week"))
		}
		return
	}
	fmt.Fprint(w, `<html><body>
		<h3>Расписание на неделю №12 (02.12.2024 - 08.12.2024)</h3>
		<table>
			<tr><td>Физика</td><td><span id="knop101">Начать занятие</span></td></tr>
			<tr><td>Философия</td><td><span id="other">-</span></td></tr>
			<tr><td>Программирование</td><td><span id="knop102">Начать занятие</span></td></tr>
		</table>
	</body></html>`)
}

func (p *fakePortal) handleListing(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `<html><body><form>
		<select id="schet">
			<option value="205.2324/1">2023/2024 1</option>
			<option value="205.2425/1" selected>2024/2025 1</option>
		</select>
		<select name="prep">
			<option value="">-- преподаватель --</option>
			<option value="1203"> Иванов И.И. </option>
			<option value="1204">Петров П.П.</option>
		</select>
	</form>
	<a href="/raspisanie_all_new.php?type_z=3&aud=77">334</a>
	<a href="/raspisanie_all_new.php?type_z=3&aud=78&x=1">505</a>
	</body></html>`)
}

func (p *fakePortal) handleGroups(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.groupPages++
	p.mu.Unlock()
	fmt.Fprint(w, `<html><body>
		<a class="vt256" href="?group=1" data-nm="ГРУППА-А">ГРУППА-А</a>
		<a class="vt256" href="?group=2" data-nm="ГРУППА-Б">ГРУППА-Б</a>
		<a class="vt256" href="?group=3" data-nm="ГРУППА-В">ГРУППА-В</a>
	</body></html>`)
}

func (p *fakePortal) handleTimetable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("schet") != "205.2425/1" || q.Get("type_z") != "1" {
		http.Error(w, "bad query", http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	page, ok := p.timetables[q.Get("group")]
	p.mu.Unlock()
	if !ok {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, page)
}

func fixtureString(t *testing.T, name string) string {
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(data)
}

func singleLessonPage(subject string, weeks string) string {
	return strings.Join([]string{
		`<table class="simple-little-table"><tr><th></th></tr>`,
		`<tr><td>1 (09:00-10:35)</td><td><div class="pair">`,
		`<span class="subect"><strong>` + subject + `</strong></span>`,
		`<span class="weeks">` + weeks + `</span>`,
		`</div></td></tr></table>`,
	}, "")
}
