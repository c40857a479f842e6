package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/net/html"

	"github.com/papercomputeco/loom/pkg/capability"
	"github.com/papercomputeco/loom/pkg/utils"
)

const (
	defaultFetchBytes = 1 << 20
	defaultFetchChars = 8000
)

// WebFetchConfig configures the web_fetch capability.
type WebFetchConfig struct {
	// Client performs requests. Defaults to a client with a 30s timeout.
	Client *http.Client

	// MaxBytes caps how much of the body is read.
	MaxBytes int64

	// MaxChars caps the returned text.
	MaxChars int
}

// WebFetch returns a capability that downloads a page and returns its
// visible text.
func WebFetch(cfg WebFetchConfig) capability.Capability {
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultFetchBytes
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultFetchChars
	}

	params := capability.ObjectSchema(map[string]*jsonschema.Schema{
		"url": capability.StringProp("Absolute http or https URL to fetch."),
	}, "url")

	return capability.NewFunc(
		WebFetchName,
		"Fetch a web page and return its readable text.",
		params,
		func(ctx context.Context, args map[string]any) (string, error) {
			raw, _ := capability.StringArg(args, "url")
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return "", fmt.Errorf("invalid url %q", raw)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return "", fmt.Errorf("creating request: %w", err)
			}
			req.Header.Set("User-Agent", "loom/"+utils.Version)

			resp, err := cfg.Client.Do(req)
			if err != nil {
				return "", fmt.Errorf("fetching %s: %w", u, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				return "", fmt.Errorf("fetching %s: status %d", u, resp.StatusCode)
			}

			body := io.LimitReader(resp.Body, cfg.MaxBytes)
			var text string
			if strings.Contains(resp.Header.Get("Content-Type"), "html") {
				text, err = visibleText(body)
			} else {
				var b []byte
				b, err = io.ReadAll(body)
				text = string(b)
			}
			if err != nil {
				return "", fmt.Errorf("reading %s: %w", u, err)
			}

			return utils.Clip(strings.TrimSpace(text), cfg.MaxChars), nil
		},
	)
}

// visibleText returns the text nodes of an HTML document outside script,
// style and similar elements, one run of whitespace collapsed to one space.
func visibleText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	var (
		sb   strings.Builder
		skip int
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return sb.String(), nil
			}
			return sb.String(), z.Err()

		case html.StartTagToken:
			name, _ := z.TagName()
			if hiddenTag(string(name)) {
				skip++
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if hiddenTag(string(name)) && skip > 0 {
				skip--
			}

		case html.TextToken:
			if skip > 0 {
				continue
			}
			fields := strings.Fields(string(z.Text()))
			if len(fields) == 0 {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strings.Join(fields, " "))
		}
	}
}

func hiddenTag(name string) bool {
	switch name {
	case "script", "style", "noscript", "template", "svg":
		return true
	}
	return false
}
