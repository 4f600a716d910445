package archive

import (
	"path"
	"strings"
)

// Rule is a single expanded exclusion filter. Each user-facing pattern
// expands into an anchored and an unanchored rule so an exclusion
// covers both the exact top-level name and the name appearing as any
// component deeper in the tree.
type Rule struct {
	Pattern string
	// Anchored restricts the rule to the top level of the tree.
	Anchored bool
}

// ExpandPatterns converts user-facing exclusion names into filter rules.
func ExpandPatterns(patterns []string) []Rule {
	rules := make([]Rule, 0, len(patterns)*2)
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		rules = append(rules,
			Rule{Pattern: p, Anchored: true},
			Rule{Pattern: p},
		)
	}
	return rules
}

// Matches reports whether the slash-separated relative path is excluded
// by any rule. An anchored rule matches only the first path component;
// an unanchored rule matches any component, which covers both the
// directory-at-any-depth and leaf-at-any-depth cases.
func Matches(relPath string, rules []Rule) bool {
	relPath = strings.Trim(path.Clean(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}
	components := strings.Split(relPath, "/")
	for _, rule := range rules {
		if rule.Anchored {
			if ok, _ := path.Match(rule.Pattern, components[0]); ok && len(components) == 1 {
				return true
			}
			continue
		}
		for _, component := range components {
			if ok, _ := path.Match(rule.Pattern, component); ok {
				return true
			}
		}
	}
	return false
}

// RuleStrings renders rules for logging.
func RuleStrings(rules []Rule) []string {
	out := make([]string, 0, len(rules))
	for _, rule := range rules {
		if rule.Anchored {
			out = append(out, rule.Pattern)
			continue
		}
		out = append(out, "*/"+rule.Pattern+"/*", "*/"+rule.Pattern)
	}
	return out
}
