package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mu    sync.Mutex
	files map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[id] = contents
}

func TestDump(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal", "test")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	output := &memoryOutput{files: map[string]string{}}
	client := resty.New()
	Dump(client, output)

	_, err := client.R().
		SetFormData(map[string]string{"users": "student"}).
		Post(srv.URL + "/cabinet/lib/autentificationok.php")
	require.NoError(t, err)
	_, err = client.R().Get(srv.URL + "/")
	require.NoError(t, err)

	require.Len(t, output.files, 2)
	first, ok := output.files["0001-autentificationok"]
	require.True(t, ok)
	require.Contains(t, first, "---- REQUEST ----\n\nPOST "+srv.URL+"/cabinet/lib/autentificationok.php")
	require.Contains(t, first, "users=student")
	require.Contains(t, first, "X-Portal: test")
	require.True(t, strings.HasSuffix(first, "<html>ok</html>"))

	_, ok = output.files["0002-index"]
	require.True(t, ok)
}

func TestDirectoryOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	output, err := NewDirectoryOutput(dir)
	require.NoError(t, err)

	output.Write("0001-raspisanie", "contents")
	read, err := os.ReadFile(filepath.Join(dir, "0001-raspisanie.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(read))
}

func TestDumpRequestWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("cabinet"))
	}))
	defer srv.Close()

	output := &memoryOutput{files: map[string]string{}}
	client := resty.New()
	Dump(client, output)

	res, err := client.R().SetQueryParam("login", "no").Get(srv.URL + "/cabinet/")
	require.NoError(t, err)
	require.Equal(t, "cabinet", res.String())

	dump, ok := output.files["0001-cabinet"]
	require.True(t, ok)
	require.Contains(t, dump, "GET "+srv.URL+"/cabinet/?login=no")
	require.True(t, strings.HasSuffix(dump, "cabinet"))
}

func TestDumpRedactsSecrets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("1"))
	}))
	defer srv.Close()

	output := &memoryOutput{files: map[string]string{}}
	client := resty.New()
	Dump(client, output)

	_, err := client.R().
		SetQueryParams(map[string]string{"users": "student@sut.ru", "parole": "hunter2"}).
		Post(srv.URL + "/cabinet/lib/autentificationok.php")
	require.NoError(t, err)
	_, err = client.R().
		SetFormData(map[string]string{"login": "student", "password": "hunter2"}).
		Post(srv.URL + "/form")
	require.NoError(t, err)

	require.Len(t, output.files, 2)
	for id, dump := range output.files {
		require.NotContains(t, dump, "hunter2", id)
		require.Contains(t, dump, "REDACTED", id)
	}
	require.Contains(t, output.files["0001-autentificationok"], "users=student%40sut.ru")
	require.Contains(t, output.files["0002-form"], "login=student")
}
