// Package naturaldate resolves free-text time expressions ("yesterday",
// "3 days ago", "last monday") into absolute timestamps, for callers that
// accept a strict RFC3339 string but want a fallback for humans typing
// into a recall filter.
package naturaldate

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// Resolve parses text relative to base and reports whether it matched
// anything. Strict timestamps should be tried with time.Parse first;
// this is the fallback for everything that isn't.
func Resolve(text string, base time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	result, err := parser.Parse(text, base)
	if err != nil || result == nil {
		return time.Time{}, false
	}
	return result.Time, true
}
