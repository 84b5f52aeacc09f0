// Package pathfilter implements gitignore-flavoured glob matching for local
// paths.
//
// Patterns are evaluated independently and an entry matches when any one of
// them does:
//
//   - a pattern ending in "/" only applies to directories
//   - a pattern starting with "/" is matched against the slash separated path
//     relative to the walk root, otherwise only the basename is considered
//   - leading and trailing slashes are stripped before glob matching
//
// Globs follow shell fnmatch rules: "*" and "?" also match "/", "[!...]"
// negates a class and "\\", "{" and "}" are literal.
package pathfilter

import (
	"path"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// IsExcluded reports whether an entry matches any of the patterns.
func IsExcluded(basename, relPath string, isDir bool, patterns []string) bool {
	for _, pattern := range patterns {
		if matches(pattern, basename, relPath, isDir) {
			return true
		}
	}
	return false
}

// IsIncluded reports whether a file matches at least one include pattern.
// It is IsExcluded with the pattern set playing the include role.
func IsIncluded(basename, relPath string, patterns []string) bool {
	return IsExcluded(basename, relPath, false, patterns)
}

func matches(pattern, basename, relPath string, isDir bool) bool {
	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, "/") && !isDir {
		return false
	}

	subject := basename
	if strings.HasPrefix(pattern, "/") {
		subject = strings.TrimPrefix(path.Clean("/"+relPath), "/")
	}

	trimmed := strings.Trim(pattern, "/")
	if trimmed == "" {
		return false
	}

	g := compile(trimmed)
	return g != nil && g.Match(subject)
}

var compiled sync.Map

// compile returns the matcher for pattern, or nil when it is malformed.
func compile(pattern string) glob.Glob {
	if cached, ok := compiled.Load(pattern); ok {
		g, _ := cached.(glob.Glob)
		return g
	}
	g, err := glob.Compile(literalMeta.Replace(pattern))
	if err != nil {
		compiled.Store(pattern, nil)
		return nil
	}
	compiled.Store(pattern, g)
	return g
}

// literalMeta escapes the glob syntax fnmatch does not have.
var literalMeta = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`)
