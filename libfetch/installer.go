// Package libfetch installs provider libraries into the directory the
// provider registry loads them from.
//
// An install downloads into a temporary file next to the target, syncs it,
// marks it executable and renames it into place, so the target path only
// ever holds a complete library. Concurrent installs of one library, from
// this or another process, are serialized by a lock file.
package libfetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/ruteri/serverless-sdk/metrics"
	"github.com/ruteri/serverless-sdk/provider"
)

// EnvSource overrides the location libraries are fetched from.
const EnvSource = "NIMBELLA_SDK_SOURCE"

const lockRetryDelay = 50 * time.Millisecond

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Installer places libraries at the paths provider.Config assigns them.
type Installer struct {
	cfg     provider.Config
	fetcher Fetcher
	log     *slog.Logger
}

func NewInstaller(cfg provider.Config, fetcher Fetcher, log *slog.Logger) *Installer {
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Installer{cfg: cfg, fetcher: fetcher, log: log}
}

// Ensure downloads lib<name><suffix> from the base location source and
// installs it, replacing any existing copy. It returns the installed path.
//
// Errors: ErrInvalidInput for a bad name or source, ErrCouldNotOpenResource
// when the download fails, ErrCouldNotLoadProvider when the library cannot
// be installed. On error the target path is left as it was.
func (i *Installer) Ensure(ctx context.Context, name, source string) (string, error) {
	start := time.Now()

	path, err := i.ensure(ctx, name, source)
	if err != nil {
		metrics.LibraryFetches.WithLabelValues(name, "error").Inc()
		i.log.Error("Failed to install library",
			slog.String("library", name),
			slog.String("source", source),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return "", err
	}

	metrics.LibraryFetches.WithLabelValues(name, "installed").Inc()
	i.log.Info("Installed library",
		slog.String("library", name),
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))
	return path, nil
}

func (i *Installer) ensure(ctx context.Context, name, source string) (string, error) {
	if !validName.MatchString(name) {
		return "", interfaces.InvalidInput(fmt.Sprintf("library name %q", name))
	}

	lib := i.cfg.LibraryFor(name)
	fileName := filepath.Base(lib.Path)

	libURL, err := LibraryURL(source, fileName)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(lib.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", installFailed(lib.Path, err)
	}

	lock := flock.New(lib.Path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", installFailed(lib.Path, err)
	}
	if !locked {
		return "", installFailed(lib.Path, ctx.Err())
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, "."+fileName+".*.tmp")
	if err != nil {
		return "", installFailed(lib.Path, err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	// No-op once the rename succeeded.
	defer os.Remove(tmpPath)

	if err := i.fetcher.Fetch(ctx, libURL, tmpPath); err != nil {
		return "", err
	}

	if err := finalize(tmpPath, lib.Path); err != nil {
		return "", err
	}
	syncDir(dir)

	return lib.Path, nil
}

// finalize checks, syncs and marks the downloaded file executable, then
// renames it over target.
func finalize(tmpPath, target string) error {
	f, err := os.OpenFile(tmpPath, os.O_RDWR, 0)
	if err != nil {
		return installFailed(target, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return installFailed(target, err)
	}
	if info.Size() == 0 {
		_ = f.Close()
		return interfaces.CouldNotOpenResource(target + ": downloaded library is empty")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return installFailed(target, err)
	}
	if err := f.Close(); err != nil {
		return installFailed(target, err)
	}

	if err := os.Chmod(tmpPath, 0755); err != nil {
		return installFailed(target, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return installFailed(target, err)
	}
	return nil
}

// syncDir makes the rename durable where the platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func installFailed(path string, err error) error {
	return fmt.Errorf("%w: install %s: %v", interfaces.ErrCouldNotLoadProvider, path, err)
}

// LibraryURL joins the base location source with fileName. source must be
// an absolute http or https URL.
func LibraryURL(source, fileName string) (string, error) {
	if source == "" {
		return "", interfaces.InvalidInput("no library source")
	}
	u, err := url.Parse(source)
	if err != nil {
		return "", interfaces.InvalidInput(fmt.Sprintf("library source %q: %v", source, err))
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", interfaces.InvalidInput(fmt.Sprintf("library source %q is not an http(s) URL", source))
	}
	return u.JoinPath(fileName).String(), nil
}

// ResolveSource picks the base location libraries are fetched from: explicit
// when set, else NIMBELLA_SDK_SOURCE, else the libraries action of the
// namespace, <apiHost>/api/v1/web/<namespace>/sdk/libraries.
func ResolveSource(explicit, namespace, apiHost string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv(EnvSource); env != "" {
		return env, nil
	}
	if namespace == "" || apiHost == "" {
		return "", interfaces.ErrInsufficientEnvironment
	}

	host := strings.TrimSuffix(apiHost, "/")
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return fmt.Sprintf("%s/api/v1/web/%s/sdk/libraries", host, url.PathEscape(namespace)), nil
}
