package redirect

// RejectionReason explains why a redirect target was replaced by the default path.
// The string values are stable: they are used as metric labels, audit details
// and API output.
type RejectionReason string

const (
	ReasonControlCharacters        RejectionReason = "control_characters"
	ReasonBackslash                RejectionReason = "backslash"
	ReasonProtocolRelative         RejectionReason = "protocol_relative"
	ReasonDangerousScheme          RejectionReason = "dangerous_scheme"
	ReasonInvalidURL               RejectionReason = "invalid_url"
	ReasonNonHTTPSScheme           RejectionReason = "non_https_scheme"
	ReasonAbsoluteURLNotAllowed    RejectionReason = "absolute_url_not_allowed"
	ReasonOriginNotAllowlisted     RejectionReason = "origin_not_allowlisted"
	ReasonRelativePathMissingSlash RejectionReason = "relative_path_must_start_with_slash"
)

var allReasons = []RejectionReason{
	ReasonControlCharacters,
	ReasonBackslash,
	ReasonProtocolRelative,
	ReasonDangerousScheme,
	ReasonInvalidURL,
	ReasonNonHTTPSScheme,
	ReasonAbsoluteURLNotAllowed,
	ReasonOriginNotAllowlisted,
	ReasonRelativePathMissingSlash,
}

// RejectionReasons returns every reason in evaluation order.
func RejectionReasons() []RejectionReason {
	out := make([]RejectionReason, len(allReasons))
	copy(out, allReasons)
	return out
}

// Valid reports whether r is one of the known reasons.
func (r RejectionReason) Valid() bool {
	for _, known := range allReasons {
		if r == known {
			return true
		}
	}
	return false
}

func (r RejectionReason) String() string {
	return string(r)
}
