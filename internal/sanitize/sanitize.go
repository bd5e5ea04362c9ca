// Package sanitize strips unsafe HTML from posted message content,
// replacing the Rust original's `ammonia` crate with bluemonday's
// allowlist-based UGC policy. Grounded on sanitize_html in
// _examples/original_source/server/src/models.rs.
package sanitize

import "github.com/microcosm-cc/bluemonday"

// HTML sanitizes chat message bodies with bluemonday's UGC policy, which
// allows a conservative set of formatting tags and strips everything else,
// including scripts, event handlers, and rel-less links.
type HTML struct {
	policy *bluemonday.Policy
}

func NewHTML() *HTML {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	return &HTML{policy: p}
}

func (h *HTML) Clean(input string) string {
	return h.policy.Sanitize(input)
}
