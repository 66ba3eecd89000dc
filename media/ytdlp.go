package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/logging"
)

// YtDlp downloads remote media as mp3.
type YtDlp struct {
	Binary             string
	CookiesFromBrowser string
	log                logrus.FieldLogger
	// output runs the command and returns stdout. Tests replace it.
	output func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYtDlp returns a downloader for the given binary.
func NewYtDlp(binary, cookiesFromBrowser string, log logrus.FieldLogger) *YtDlp {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	return &YtDlp{Binary: binary, CookiesFromBrowser: cookiesFromBrowser, log: logging.Component(log, "yt-dlp")}
}

// IsURL reports whether s looks like an http(s) URL rather than a local path.
func IsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// BuildArgs constructs the yt-dlp argument list for an audio-only download into dir.
func (y *YtDlp) BuildArgs(rawURL, dir string) []string {
	args := make([]string, 0, 16)
	if y.CookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", y.CookiesFromBrowser)
	}
	return append(args,
		"--no-playlist",
		"--extract-audio", "--audio-format", "mp3",
		"--restrict-filenames", "--trim-filenames", "20",
		"-P", dir,
		"--print", "after_move:filepath",
		rawURL,
	)
}

// Download fetches rawURL and returns the path of the final file.
func (y *YtDlp) Download(ctx context.Context, rawURL, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("yt-dlp: ensure download dir: %w", err)
	}
	args := y.BuildArgs(rawURL, dir)
	y.log.WithFields(logrus.Fields{"url": rawURL, "dir": dir}).Info("downloading media")

	run := y.output
	if run == nil {
		run = commandOutput
	}
	out, err := run(ctx, y.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("yt-dlp: %w", err)
	}
	path := lastLine(out)
	if path == "" {
		return "", errors.New("yt-dlp: no output path printed")
	}
	y.log.WithField("path", path).Info("download complete")
	return path, nil
}

func commandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
