package sut

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bonchassist-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	portal := newFakePortal(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	{
		session := portal.newSession(t)
		require.True(t, session.Login(ctx, portal.login, portal.password))
	}
	{
		session := portal.newSession(t)
		require.False(t, session.Login(ctx, portal.login, "wrong"))

		// a rejected session stays anonymous
		_, err := session.OpenAttendance(ctx)
		require.ErrorIs(t, err, ErrSessionExpired)
	}
}

func TestSessionDump(t *testing.T) {
	portal := newFakePortal(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	options := portal.options()
	options.DumpDir = filepath.Join(t.TempDir(), "dump")
	session, err := NewSession(options, &telemetry.Recorder{})
	require.NoError(t, err)
	require.True(t, session.Login(ctx, portal.login, portal.password))

	entries, err := os.ReadDir(options.DumpDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Equal(t, []string{
		"0001-cabinet.txt",
		"0002-autentificationok.txt",
		"0003-cabinet.txt",
	}, names)

	auth, err := os.ReadFile(filepath.Join(options.DumpDir, "0002-autentificationok.txt"))
	require.NoError(t, err)
	require.NotContains(t, string(auth), "parole="+portal.password)
	require.Contains(t, string(auth), "parole=REDACTED")
}

func TestLoginUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	options := DefaultOptions()
	options.CabinetURL = url + "/cabinet/"
	options.AuthURL = url + "/auth"
	options.Timeout = time.Second

	rec := &telemetry.Recorder{}
	session, err := NewSession(options, rec)
	require.NoError(t, err)

	require.False(t, session.Login(context.Background(), "a", "b"))
	require.NotEmpty(t, rec.Reports("warning", report_session_login))
}

func TestLoginServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	options := DefaultOptions()
	options.CabinetURL = srv.URL + "/cabinet/"
	options.AuthURL = srv.URL + "/auth"

	session, err := NewSession(options, &telemetry.Recorder{})
	require.NoError(t, err)
	require.False(t, session.Login(context.Background(), "a", "b"))
}

func TestAttendance(t *testing.T) {
	portal := newFakePortal(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session := portal.newSession(t)
	require.True(t, session.Login(ctx, portal.login, portal.password))

	page, err := session.OpenAttendance(ctx)
	require.NoError(t, err)
	require.Equal(t, 12, page.Week)
	require.Equal(t, []string{"101", "102"}, page.LessonIDs)

	for _, id := range page.LessonIDs {
		require.NoError(t, session.MarkAttendance(ctx, id, page.Week))
	}
	require.Equal(t, []string{"101@12", "102@12"}, portal.clicks)

	portal.expire()
	_, err = session.OpenAttendance(ctx)
	require.True(t, errors.Is(err, ErrSessionExpired))

	// logging in again on the same session recovers it
	require.True(t, session.Login(ctx, portal.login, portal.password))
	_, err = session.OpenAttendance(ctx)
	require.NoError(t, err)
}

func TestIsExpiredMarker(t *testing.T) {
	markers := DefaultMarkers()

	require.True(t, IsExpiredMarker(deniedBody, markers))
	require.True(t, IsExpiredMarker("\n"+deniedBody+"\n", markers))
	require.True(t, IsExpiredMarker("<p>Сессия устарела, необходимо перезагрузить приложение</p>", markers))
	require.False(t, IsExpiredMarker("<h3>Неделя №3</h3>", markers))
	require.False(t, IsExpiredMarker("", Markers{}))

	custom := Markers{Relogin: []string{"login.php"}}
	require.True(t, IsExpiredMarker(`<meta http-equiv="refresh" content="0; url=login.php">`, custom))
	require.False(t, IsExpiredMarker(deniedBody, custom))
}
