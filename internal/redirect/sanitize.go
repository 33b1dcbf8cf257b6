// Package redirect decides whether a caller-supplied post-login target
// ("returnTo") is safe to redirect to.
//
// Only two kinds of value survive: a relative path starting with a single "/"
// and an absolute https URL whose origin is on an explicit allowlist. Anything
// else is replaced by the default path. Evaluation is pure and safe for
// concurrent use.
package redirect

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultPath is used when Options.DefaultPath is empty or itself unsafe.
	DefaultPath = "/"

	// maxReportedLength caps the value handed to Options.OnRejected.
	maxReportedLength = 100
)

// Options configures a single Sanitize call. The zero value is usable:
// default path "/", no absolute URLs accepted, no callback.
type Options struct {
	// DefaultPath is returned for empty or rejected input. It must be safe under
	// the same options; otherwise "/" is used.
	DefaultPath string

	// AllowedOrigins lists scheme://host[:port] entries that absolute https URLs
	// may point to. Compared case-insensitively as whole strings.
	AllowedOrigins []string

	// ExtraDeniedSchemes extends the built-in deny-list ("myapp", "myapp:" and
	// "myapp://" are all accepted forms).
	ExtraDeniedSchemes []string

	// OnRejected, when set, is called once per rejection with the reason and the
	// original input truncated to 100 characters. A panic raised by the callback
	// propagates to the caller of Sanitize.
	OnRejected func(reason RejectionReason, truncated string)
}

// Result is the outcome of Sanitize.
type Result struct {
	Sanitized       string          `json:"sanitized"`
	WasRejected     bool            `json:"was_rejected"`
	RejectionReason RejectionReason `json:"rejection_reason,omitempty"`
}

// Sanitize returns a redirect target that is safe to use in a Location header
// or client-side navigation. Empty and whitespace-only input yields the
// default path without counting as a rejection.
func Sanitize(raw string, opts Options) Result {
	fallback := opts.fallbackPath()

	trimmed := trimInput(raw)
	if trimmed == "" {
		return Result{Sanitized: fallback}
	}

	reason := evaluate(trimmed, opts)
	if reason == "" {
		return Result{Sanitized: trimmed}
	}

	if opts.OnRejected != nil {
		opts.OnRejected(reason, Truncate(raw))
	}

	return Result{
		Sanitized:       fallback,
		WasRejected:     true,
		RejectionReason: reason,
	}
}

// SanitizeSimple returns only the sanitized target.
func SanitizeSimple(raw string, opts Options) string {
	return Sanitize(raw, opts).Sanitized
}

// IsSafe reports whether raw passes the policy unchanged (empty input counts
// as safe).
func IsSafe(raw string, opts Options) bool {
	return !Sanitize(raw, opts).WasRejected
}

// Truncate shortens s to 100 characters followed by "..." when it is longer.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxReportedLength {
		return s
	}
	return string([]rune(s)[:maxReportedLength]) + "..."
}

// trimInput strips leading and trailing white space, including a byte order
// mark.
func trimInput(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff'
	})
}

func (o Options) fallbackPath() string {
	p := trimInput(o.DefaultPath)
	if p == "" || evaluate(p, o) != "" {
		return DefaultPath
	}
	return p
}

// evaluate applies the policy to an already trimmed, non-empty value and
// returns the first violated rule, or "" when the value is acceptable.
func evaluate(s string, opts Options) RejectionReason {
	if reason := structuralAnomaly(s); reason != "" {
		return reason
	}

	if hasDeniedScheme(strings.ToLower(s), opts.ExtraDeniedSchemes) {
		return ReasonDangerousScheme
	}

	// Any "://" means an absolute URL candidate, wherever it appears.
	if strings.Contains(s, "://") {
		return evaluateAbsolute(s, opts.AllowedOrigins)
	}

	if !strings.HasPrefix(s, "/") {
		return ReasonRelativePathMissingSlash
	}

	return ""
}

func evaluateAbsolute(s string, allowed []string) RejectionReason {
	u, err := url.Parse(s)
	if err != nil {
		return ReasonInvalidURL
	}

	if u.Scheme != "https" {
		return ReasonNonHTTPSScheme
	}

	if u.Hostname() == "" {
		return ReasonInvalidURL
	}

	if len(allowed) == 0 {
		return ReasonAbsoluteURLNotAllowed
	}

	if !originAllowed(originOf(u), allowed) {
		return ReasonOriginNotAllowlisted
	}

	return ""
}
