package cleaner

import "github.com/microcosm-cc/bluemonday"

// newSanitizer returns the policy applied to the html format: user-generated
// content markup (headings, lists, links, images, tables) with every script,
// style, event handler and javascript: URL stripped. Policies are safe for
// concurrent use once built.
func newSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").Globally()
	return p
}
