package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/nijaru/yt-summary/errors"
)

const videoIDLength = 11

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var shortLinkHosts = map[string]bool{
	"youtu.be":     true,
	"www.youtu.be": true,
}

// ExtractVideoID returns the 11 character video identifier in rawURL.
// The v query parameter wins, then the short-link path, then a final path
// segment of identifier length.
func ExtractVideoID(rawURL string) (string, error) {
	const op = "validation.ExtractVideoID"

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.InvalidURL(op, nil, "URL is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.InvalidURL(op, err, "Invalid URL format")
	}

	var candidate string
	switch {
	case parsed.Query().Get("v") != "":
		candidate = parsed.Query().Get("v")
	case shortLinkHosts[strings.ToLower(parsed.Hostname())]:
		candidate = strings.TrimPrefix(parsed.Path, "/")
		if i := strings.Index(candidate, "/"); i >= 0 {
			candidate = candidate[:i]
		}
	default:
		segments := strings.Split(strings.TrimRight(parsed.Path, "/"), "/")
		if last := segments[len(segments)-1]; len(last) == videoIDLength {
			candidate = last
		}
	}

	if !videoIDPattern.MatchString(candidate) {
		return "", errors.InvalidURL(op, nil, fmt.Sprintf("No video identifier found in %q", rawURL))
	}

	return candidate, nil
}

type Validator struct {
	allowedHosts []string
}

func NewValidator() *Validator {
	return &Validator{allowedHosts: []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}}
}

// ValidateURL checks scheme and host before any network work is attempted.
func (v *Validator) ValidateURL(urlStr string) error {
	const op = "Validator.ValidateURL"

	if urlStr == "" {
		return errors.InvalidURL(op, nil, "URL is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return errors.InvalidURL(op, err, "Invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.InvalidURL(op, nil, "URL must use HTTP or HTTPS")
	}

	host := strings.ToLower(parsedURL.Hostname())
	for _, allowed := range v.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}

	return errors.InvalidURL(op, nil, "Only YouTube URLs are supported")
}

// RequestValidationOpts holds options for request validation
type RequestValidationOpts struct {
	MaxContentLength int64
	RequireJSON      bool
}

// ValidateRequest validates HTTP requests
func (v *Validator) ValidateRequest(r *http.Request, opts RequestValidationOpts) error {
	const op = "Validator.ValidateRequest"

	if opts.RequireJSON {
		if contentType := r.Header.Get("Content-Type"); !strings.Contains(contentType, "application/json") {
			return errors.InvalidInput(op, nil, "Content-Type must be application/json")
		}
	}

	if opts.MaxContentLength > 0 && r.ContentLength > opts.MaxContentLength {
		return errors.InvalidInput(op, nil, "Request body too large")
	}

	return nil
}
