// Package normalize implements the Normalizer interface.
// It rewrites the class markers of known source documents into Markdown
// prefixes with an ordered list of whole-document regex substitutions,
// before the HTML reaches the renderer.
package normalize

import (
	"regexp"
)

// Rule is a single pattern substitution. Replacement uses ${n} group syntax.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply runs the rule over the whole text. An unmatched pattern is a no-op.
func (r Rule) Apply(text string) string {
	return r.Pattern.ReplaceAllString(text, r.Replacement)
}

// paragraphClasses are the paragraph classes unwrapped into bare markers.
const paragraphClasses = `MsoBodyTextIndent|pNoteCMT|pBullet|pBody|pNumList1CMT|pToC_Subhead[1-6]`

// DefaultRules returns the rule list in application order.
// Later rules assume earlier ones already ran: the paragraph unwrap must see
// the class names before they are rewritten or erased as bare tokens.
func DefaultRules() []Rule {
	return []Rule{
		rule("unwrap-paragraph", `<p\s+class="(`+paragraphClasses+`)">(.*?)</p>`, "${1} ${2}\n"),
		rule("blockquote", `MsoBodyTextIndent`, "<br> > "),
		rule("note", `<p\s+class="pNoteCMT">(.*?)</p>`, "> [!${1}]\n"),
		rule("bullet", `pBullet`, "- "),
		rule("erase-body", `pBody`, ""),
		rule("erase-numlist", `pNumList1CMT`, ""),
		rule("heading-1", `pToC_Subhead1`, "<br># "),
		rule("heading-2", `pToC_Subhead2`, "<br>## "),
		rule("heading-3", `pToC_Subhead3`, "<br>### "),
		rule("heading-3-cmt", `pSubhead3CMT`, "<br>### "),
		rule("heading-4", `pToC_Subhead4`, "<br>#### "),
		rule("heading-5", `pToC_Subhead5`, "<br>##### "),
		rule("heading-6", `pToC_Subhead6`, "<br>###### "),
	}
}

func rule(name, pattern, replacement string) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile(pattern), Replacement: replacement}
}

// RuleNormalizer applies its rules in order.
type RuleNormalizer struct {
	rules []Rule
}

// New creates a RuleNormalizer. With no rules it uses DefaultRules.
func New(rules ...Rule) *RuleNormalizer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RuleNormalizer{rules: rules}
}

// Normalize applies every rule to html in order and returns the result.
func (n *RuleNormalizer) Normalize(html string) string {
	for _, rule := range n.rules {
		html = rule.Apply(html)
	}
	return html
}
