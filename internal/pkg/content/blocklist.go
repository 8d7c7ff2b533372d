package content

import (
	"regexp"
	"slices"
	"strings"
)

// DefaultBlockTerms 内置安全词表
var DefaultBlockTerms = []string{
	"kill yourself",
	"go die",
	"subhuman",
	"vermin",
	"exterminate",
	"genocide",
}

type Blocklist struct {
	terms    []string
	patterns []*regexp.Regexp
}

// NewBlocklist 合并内置词表与额外词条，小写去重排序
func NewBlocklist(extra ...string) *Blocklist {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range append(append([]string(nil), DefaultBlockTerms...), extra...) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	slices.Sort(terms)

	patterns := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(t) + `\b`)
	}
	return &Blocklist{terms: terms, patterns: patterns}
}

// ParseTerms 解析逗号分隔的词表配置
func ParseTerms(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (b *Blocklist) Terms() []string {
	return slices.Clone(b.terms)
}

// Contains 归一化文本中是否以整词出现任一词条
func (b *Blocklist) Contains(text string) bool {
	normalized := NormalizeText(text)
	for _, p := range b.patterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}
