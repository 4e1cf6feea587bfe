// Package version resolves user supplied version selectors into the concrete
// version directories that exist in a project repository.
//
// A selector is a comma separated list of segments. Each segment is one of:
//
//	*              every version directory
//	v2.1.*         glob on the directory name (* and ?)
//	v2[.][0-9]+    bracketed expression: brackets are removed and the rest is
//	               compiled as a regular expression anchored at the start
//	v1.0           exact directory name
//
// The bracket form is a heuristic kept for compatibility with existing
// selectors: `v[0-9]` becomes the expression `v0-9`, not a character class.
package version

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/nsxbet/sql-scanner/pkg/logger"
)

var bracketSelector = regexp.MustCompile(`^[^/]*\[.*\][^/]*$`)

// NotFoundError is returned when a selector matches no version directory.
type NotFoundError struct {
	BasePath string
	Selector string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no version directory under %q matches %q", e.BasePath, e.Selector)
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Resolver matches selectors against a project file list.
type Resolver struct {
	log logger.Interface
}

// NewResolver creates a resolver logging through log. A nil log discards.
func NewResolver(log logger.Interface) *Resolver {
	if log == nil {
		log = logger.Discard()
	}
	return &Resolver{log: log}
}

// Resolve returns the sorted, deduplicated version directories under
// basePath selected by selector. It returns a *NotFoundError when nothing
// matches.
func (r *Resolver) Resolve(basePath, selector string, files []string) ([]string, error) {
	basePath = normalizeBase(basePath)
	candidates := Candidates(basePath, files)

	matched := make(map[string]struct{})
	for _, segment := range strings.Split(selector, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		for _, dir := range r.matchSegment(basePath, segment, candidates) {
			matched[dir] = struct{}{}
		}
	}

	if len(matched) == 0 {
		return nil, &NotFoundError{BasePath: basePath, Selector: selector}
	}

	result := make([]string, 0, len(matched))
	for dir := range matched {
		result = append(result, dir)
	}
	sort.Strings(result)
	return result, nil
}

// Resolve is a convenience wrapper around a resolver that discards logs.
func Resolve(basePath, selector string, files []string) ([]string, error) {
	return NewResolver(nil).Resolve(basePath, selector, files)
}

func (r *Resolver) matchSegment(basePath, segment string, candidates []string) []string {
	switch {
	case segment == "*":
		return candidates

	case strings.ContainsAny(segment, "*?"):
		g, err := glob.Compile(segment)
		if err != nil {
			r.log.Error("Invalid version glob", "pattern", segment, "error", err)
			return nil
		}
		return filter(candidates, g.Match)

	case bracketSelector.MatchString(segment):
		expr := strings.NewReplacer("[", "", "]", "").Replace(segment)
		re, err := regexp.Compile("^(?:" + expr + ")")
		if err != nil {
			r.log.Error("Invalid version expression", "pattern", segment, "expression", expr, "error", err)
			return nil
		}
		return filter(candidates, re.MatchString)

	default:
		exact := join(basePath, segment)
		for _, dir := range candidates {
			if dir == exact {
				return []string{dir}
			}
		}
		return nil
	}
}

// Candidates returns the sorted first-level directories of basePath that
// contain at least one file.
func Candidates(basePath string, files []string) []string {
	basePath = normalizeBase(basePath)
	prefix := basePath + "/"
	if basePath == "" {
		prefix = ""
	}

	seen := make(map[string]struct{})
	for _, f := range files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rel := strings.TrimLeft(f[len(prefix):], "/")
		name, _, found := strings.Cut(rel, "/")
		if !found || name == "" {
			continue
		}
		seen[join(basePath, name)] = struct{}{}
	}

	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// FilesUnder returns the files located below dir, preserving input order.
func FilesUnder(dir string, files []string) []string {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for _, f := range files {
		if strings.HasPrefix(f, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// Name returns the version name of a version directory.
func Name(dir string) string {
	return path.Base(dir)
}

func filter(dirs []string, match func(string) bool) []string {
	var out []string
	for _, d := range dirs {
		if match(path.Base(d)) {
			out = append(out, d)
		}
	}
	return out
}

func normalizeBase(basePath string) string {
	return strings.TrimSuffix(strings.TrimSpace(basePath), "/")
}

func join(basePath, name string) string {
	if basePath == "" {
		return name
	}
	return basePath + "/" + name
}
