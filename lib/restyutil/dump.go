// Package restyutil records the HTTP traffic of a resty client, it is used to
// capture portal pages when a parser breaks.
package restyutil

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type Output interface {
	Write(id string, contents string)
}

// DirectoryOutput writes every exchange to its own file in a directory.
type DirectoryOutput struct {
	directory string
}

func NewDirectoryOutput(dir string) (DirectoryOutput, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return DirectoryOutput{}, err
	}
	return DirectoryOutput{directory: dir}, nil
}

func (o DirectoryOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".txt"), []byte(contents), 0o600)
	if err != nil {
		slog.Warn("failed to write exchange dump", "id", id, "err", err)
	}
}

// Dump writes every completed exchange of client to output. Exchanges are
// numbered in completion order and named after the last path segment of
// their url.
func Dump(client *resty.Client, output Output) {
	var counter atomic.Uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := fmt.Sprintf("%04d-%s", counter.Add(1), exchangeName(res.Request.URL))
		output.Write(id, FormatExchange(res))
		return nil
	})
}

func exchangeName(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "request"
	}
	name := filepath.Base(strings.TrimSuffix(parsed.Path, "/"))
	if name == "." || name == "/" || name == "" {
		return "index"
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}
