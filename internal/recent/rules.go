package recent

import (
	"log/slog"
	"regexp"

	"github.com/starford/recentfiles/internal/parser"
)

// rules is the compiled form of the exclusion settings.
//
// Each path pattern is a regular expression matched anywhere in the
// vault-relative path; patterns anchor themselves with ^ or $ if needed.
// Patterns that fail to compile are kept in invalid and never match.
type rules struct {
	patterns []*regexp.Regexp
	invalid  []string
	tags     map[string]struct{}
}

func compileRules(paths, tags []string, logger *slog.Logger) rules {
	r := rules{tags: make(map[string]struct{}, len(tags))}
	for _, p := range paths {
		re, err := regexp.Compile(p)
		if err != nil {
			logger.Warn("recent: invalid omitted path pattern",
				slog.String("pattern", p),
				slog.String("error", err.Error()))
			r.invalid = append(r.invalid, p)
			continue
		}
		r.patterns = append(r.patterns, re)
	}
	for _, t := range tags {
		if t = parser.NormalizeTag(t); t != "" {
			r.tags[t] = struct{}{}
		}
	}
	return r
}

func (r rules) matchPath(p string) bool {
	for _, re := range r.patterns {
		if re.MatchString(p) {
			return true
		}
	}
	return false
}

func (r rules) matchTags(tags []string) bool {
	if len(r.tags) == 0 {
		return false
	}
	for _, t := range tags {
		if _, ok := r.tags[parser.NormalizeTag(t)]; ok {
			return true
		}
	}
	return false
}
