// Package wikifeed saves a Wikipedia user's contribution feed as a standalone HTML page.
package wikifeed

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/mediagram/logging"
	"github.com/maastricht-university/mediagram/report"
)

const (
	DefaultAPI    = "https://en.wikipedia.org/w/api.php"
	DefaultUser   = "Piotrus"
	DefaultOutput = "output_final_for_chrome.html"
)

// Fetcher is satisfied by clients.HTTP.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

type Options struct {
	API    string
	User   string
	Output string
	Open   bool
	Log    logrus.FieldLogger
	// Opener defaults to browser.OpenFile.
	Opener func(path string) error
}

// FeedURL builds the feedcontributions query for user.
func FeedURL(api, user string) string {
	if api == "" {
		api = DefaultAPI
	}
	q := url.Values{}
	q.Set("action", "feedcontributions")
	q.Set("user", user)
	return api + "?" + q.Encode()
}

// Unescape undoes the double entity encoding the feed arrives with.
func Unescape(s string) string {
	return html.UnescapeString(html.UnescapeString(s))
}

// Save fetches the feed and writes it to opts.Output. It returns the written path.
func Save(ctx context.Context, f Fetcher, opts Options) (string, error) {
	if opts.User = strings.TrimSpace(opts.User); opts.User == "" {
		opts.User = DefaultUser
	}
	if opts.Output == "" {
		opts.Output = DefaultOutput
	}
	log := logging.Component(opts.Log, "wikifeed").WithField("user", opts.User)

	src := FeedURL(opts.API, opts.User)
	log.WithField("url", src).Debug("fetching feed")
	body, err := f.FetchText(ctx, src)
	if err != nil {
		return "", fmt.Errorf("fetch feed: %w", err)
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", opts.Output, err)
	}
	err = report.FeedPage(out, report.FeedPageData{User: opts.User, Content: template.HTML(Unescape(body))})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", opts.Output, err)
	}
	log.WithField("output", opts.Output).Info("feed saved")

	if opts.Open {
		open := opts.Opener
		if open == nil {
			open = browser.OpenFile
		}
		if err := open(opts.Output); err != nil {
			log.WithError(err).Warn("could not open browser")
		}
	}
	return opts.Output, nil
}
