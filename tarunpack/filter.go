package tarunpack

import (
	"path"

	"github.com/bmatcuk/doublestar/v4"
)

// matches reports whether rel should be extracted: included (or no include
// patterns given) and not excluded. A bad pattern is treated as
// non-matching rather than a hard error, since Options.Include/Exclude are
// typically user-supplied at the call site and validated there.
func matches(rel string, include, exclude []string) bool {
	rel = path.Clean(rel)

	if len(include) > 0 && !matchAny(include, rel) {
		return false
	}
	if matchAny(exclude, rel) {
		return false
	}
	return true
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}
