// Package classifier partitions repository SQL files into dialect buckets.
package classifier

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/nsxbet/sql-scanner/pkg/logger"
	"github.com/nsxbet/sql-scanner/pkg/types"
)

// sqlExtensions are the file suffixes considered SQL files.
var sqlExtensions = []string{".sql", ".mysql", ".oracle", ".db2"}

// Rule maps a dialect to the glob patterns that select it. Patterns match
// against the full repository path; `*` also matches `/`.
type Rule struct {
	Dialect  types.Dialect
	Patterns []string
}

// Bucket is the ordered list of files classified under one dialect.
type Bucket struct {
	Dialect types.Dialect
	Files   []string
}

// Buckets is ordered by the first appearance of each dialect in the input.
type Buckets []Bucket

// Get returns the files of dialect d.
func (b Buckets) Get(d types.Dialect) []string {
	for _, bucket := range b {
		if bucket.Dialect == d {
			return bucket.Files
		}
	}
	return nil
}

// Total returns the number of classified files.
func (b Buckets) Total() int {
	n := 0
	for _, bucket := range b {
		n += len(bucket.Files)
	}
	return n
}

// Filter keeps only the bucket of dialect d. An empty d keeps everything.
func (b Buckets) Filter(d types.Dialect) Buckets {
	if d == "" {
		return b
	}
	var out Buckets
	for _, bucket := range b {
		if bucket.Dialect == d {
			out = append(out, bucket)
		}
	}
	return out
}

type compiledRule struct {
	dialect types.Dialect
	globs   []glob.Glob
}

// Classifier assigns dialects to files using explicit rules first and the
// filename suffix heuristic second.
type Classifier struct {
	rules []compiledRule
}

// New compiles rules. Patterns that fail to compile are logged and ignored.
func New(rules []Rule, log logger.Interface) *Classifier {
	if log == nil {
		log = logger.Discard()
	}
	c := &Classifier{}
	for _, r := range rules {
		cr := compiledRule{dialect: r.Dialect}
		for _, p := range r.Patterns {
			g, err := glob.Compile(p)
			if err != nil {
				log.Warn("Ignoring invalid dialect pattern", "db_type", r.Dialect, "pattern", p, "error", err)
				continue
			}
			cr.globs = append(cr.globs, g)
		}
		c.rules = append(c.rules, cr)
	}
	return c
}

// Classify drops non-SQL files and buckets the rest. Every retained file
// lands in exactly one bucket.
func (c *Classifier) Classify(files []string) Buckets {
	var buckets Buckets
	index := make(map[types.Dialect]int)

	for _, f := range files {
		if !IsSQLFile(f) {
			continue
		}
		d := c.Detect(f)
		i, ok := index[d]
		if !ok {
			i = len(buckets)
			index[d] = i
			buckets = append(buckets, Bucket{Dialect: d})
		}
		buckets[i].Files = append(buckets[i].Files, f)
	}
	return buckets
}

// Detect returns the dialect of a single path.
func (c *Classifier) Detect(path string) types.Dialect {
	for _, r := range c.rules {
		for _, g := range r.globs {
			if g.Match(path) {
				return r.dialect
			}
		}
	}
	return detectBySuffix(path)
}

// Classify is a convenience wrapper for one-shot classification.
func Classify(files []string, rules []Rule) Buckets {
	return New(rules, nil).Classify(files)
}

// IsSQLFile reports whether path carries one of the SQL-family suffixes.
func IsSQLFile(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range sqlExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func detectBySuffix(path string) types.Dialect {
	lower := strings.ToLower(path)
	for _, d := range types.KnownDialects {
		token := "." + string(d)
		if strings.Contains(lower, token+".sql") || strings.HasSuffix(lower, token) {
			return d
		}
	}
	return types.DialectDefault
}
