package valueobject

// Scope identifies the audience segment a content item or grant covers.
// Class levels ("10", "11", "12", "neet"), boards ("state", "cbse") and
// subjects are all plain scope tags; the three below carry special meaning
// for subscription grants.
type Scope string

const (
	// ScopeAllContent is the wildcard scope: a subscription covering it
	// unlocks every content kind.
	ScopeAllContent Scope = "all_content"

	// ScopeAllPDFs covers every PDF item regardless of its tags.
	ScopeAllPDFs Scope = "all_pdfs"

	// ScopeAllVideos covers every video item regardless of its tags.
	ScopeAllVideos Scope = "all_videos"
)

// String returns the string representation of the scope
func (s Scope) String() string {
	return string(s)
}

// KindScope maps a content kind to the subscription scope that covers
// every item of that kind. Course lectures are only covered by the
// wildcard scope or an explicit tag match.
func KindScope(kind ContentKind) (Scope, bool) {
	switch kind {
	case KindPDF:
		return ScopeAllPDFs, true
	case KindVideo:
		return ScopeAllVideos, true
	default:
		return "", false
	}
}
