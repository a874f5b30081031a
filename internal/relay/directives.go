package relay

import (
	"regexp"
	"strings"
)

// Control directives the assistant emits for other front ends. Display
// directives such as [ACTION:show_image|path] are left for the browser.
var controlDirectives = []*regexp.Regexp{
	regexp.MustCompile(`\[ACTION:check_inbox(?::\d+)?\]\n?`),
	regexp.MustCompile(`\[ACTION:send_email\|[^\]]+\]\n?`),
}

func StripDirectives(text string) string {
	for _, re := range controlDirectives {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
