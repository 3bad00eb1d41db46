package libfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/ruteri/serverless-sdk/interfaces"
	"golang.org/x/sync/semaphore"
)

// Fetcher downloads the resource at url into the existing file dst. Failures
// to reach or read the resource are reported as ErrCouldNotOpenResource.
type Fetcher interface {
	Fetch(ctx context.Context, url, dst string) error
}

// HTTPFetcher fetches over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher using client, or a pooled cleanhttp client
// when client is nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return interfaces.InvalidInput(err.Error())
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrCouldNotOpenResource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return interfaces.CouldNotOpenResource(fmt.Sprintf("%s: %s", url, resp.Status))
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %s: %v", interfaces.ErrCouldNotOpenResource, url, err)
	}
	return out.Close()
}

// Placeholders substituted in CommandFetcher arguments.
const (
	PlaceholderURL = "{url}"
	PlaceholderDst = "{dst}"
)

// CommandFetcher delegates the download to an external program.
type CommandFetcher struct {
	Command string
	Args    []string
	log     *slog.Logger
}

// NewCommandFetcher runs command with args after substituting {url} and
// {dst}. With an empty command it runs curl -fsSL -o {dst} {url}.
func NewCommandFetcher(command string, args []string, log *slog.Logger) *CommandFetcher {
	if command == "" {
		command = "curl"
		args = []string{"-fsSL", "-o", PlaceholderDst, PlaceholderURL}
	}
	if log == nil {
		log = slog.Default()
	}
	return &CommandFetcher{Command: command, Args: args, log: log}
}

func (f *CommandFetcher) Fetch(ctx context.Context, url, dst string) error {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		a = strings.ReplaceAll(a, PlaceholderURL, url)
		args[i] = strings.ReplaceAll(a, PlaceholderDst, dst)
	}

	f.log.Debug("Running fetch command",
		slog.String("command", f.Command),
		slog.Any("args", args))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Command, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return interfaces.CouldNotOpenResource(fmt.Sprintf("%s: %s", url, msg))
	}
	return nil
}

// SemaphoreFetcher bounds the number of concurrent fetches of the wrapped
// fetcher. Callers block until a slot frees up or ctx is done.
type SemaphoreFetcher struct {
	sem  *semaphore.Weighted
	next Fetcher
}

func NewSemaphoreFetcher(next Fetcher, limit int64) *SemaphoreFetcher {
	if limit < 1 {
		limit = 1
	}
	return &SemaphoreFetcher{sem: semaphore.NewWeighted(limit), next: next}
}

func (f *SemaphoreFetcher) Fetch(ctx context.Context, url, dst string) error {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer f.sem.Release(1)
	return f.next.Fetch(ctx, url, dst)
}
