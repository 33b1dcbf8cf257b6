package redirect

import "strings"

// deniedSchemes lists scheme prefixes that are never acceptable as a web
// redirect target, regardless of the origin allowlist. Matching is anchored at
// the start of the lowercased, trimmed input.
var deniedSchemes = []string{
	// Desktop/extension deep links
	"wrcode:",
	"wrdesk:",
	"electron:",

	// Script and local content
	"javascript:",
	"vbscript:",
	"data:",
	"blob:",
	"file:",
	"about:",

	// Browser internals
	"chrome:",
	"chrome-extension:",
	"edge:",

	// OS shell associations
	"ms-windows-store:",
	"ms-appinstaller:",
}

// DeniedSchemes returns a copy of the built-in scheme deny-list.
func DeniedSchemes() []string {
	out := make([]string, len(deniedSchemes))
	copy(out, deniedSchemes)
	return out
}

// NormalizeScheme turns "wrcode", "WRCODE:" or " wrcode:// " into "wrcode:".
// It returns "" for input that does not contain a scheme name.
func NormalizeScheme(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "//")
	s = strings.TrimSuffix(s, ":")
	if s == "" {
		return ""
	}
	return s + ":"
}

// hasControlCharacter reports whether s contains an ASCII control character
// (0x00-0x1F or DEL).
func hasControlCharacter(s string) bool {
	for i := 0; i < len(s); i++ {
		if b := s[i]; b < 0x20 || b == 0x7f {
			return true
		}
	}
	return false
}

// structuralAnomaly returns the reason for the first structural problem in s,
// or "" if there is none. Checked before any scheme inspection.
func structuralAnomaly(s string) RejectionReason {
	switch {
	case hasControlCharacter(s):
		return ReasonControlCharacters
	case strings.Contains(s, `\`):
		return ReasonBackslash
	case strings.HasPrefix(s, "//"):
		return ReasonProtocolRelative
	}
	return ""
}

// hasDeniedScheme reports whether lower starts with a built-in or extra denied
// scheme prefix. lower must already be lowercased.
func hasDeniedScheme(lower string, extra []string) bool {
	for _, scheme := range deniedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	for _, scheme := range extra {
		if scheme = NormalizeScheme(scheme); scheme != "" && strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
