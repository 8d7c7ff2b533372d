package content

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	tokenPattern       = regexp.MustCompile(`[a-z0-9']+`)
	linkPattern        = regexp.MustCompile(`(?i)https?://`)
	threadIndexPattern = regexp.MustCompile(`^\d+[.)\-:\s]+`)
)

// NormalizeText 去首尾空白、转小写、折叠连续空白
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Fingerprint 以 "|" 拼接后归一化，取 sha256 十六进制
func Fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(NormalizeText(strings.Join(parts, "|"))))
	return hex.EncodeToString(sum[:])
}

// Tokenize 归一化后提取 [a-z0-9']+ 词元
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(NormalizeText(text), -1)
}

// TokenOverlapRatio 词元多重集 Jaccard，任一侧无词元时为 0
func TokenOverlapRatio(a, b string) float64 {
	ta, tb := Tokenize(a), Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	ca := make(map[string]int, len(ta))
	for _, t := range ta {
		ca[t]++
	}
	cb := make(map[string]int, len(tb))
	for _, t := range tb {
		cb[t]++
	}

	var inter, union int
	for t, n := range ca {
		m := cb[t]
		inter += min(n, m)
		union += max(n, m)
	}
	for t, m := range cb {
		if _, ok := ca[t]; !ok {
			union += m
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// IsSimilar 重合度达到阈值即视为相似
func IsSimilar(a, b string, threshold float64) bool {
	return TokenOverlapRatio(a, b) >= threshold
}

// SplitThread 按行拆分线程，去掉行首序号
func SplitThread(text string) []string {
	trimmed := strings.TrimSpace(text)
	var lines []string
	for _, line := range strings.Split(trimmed, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= 1 {
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	segments := make([]string, 0, len(lines))
	for _, line := range lines {
		if seg := strings.TrimSpace(threadIndexPattern.ReplaceAllString(line, "")); seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return []string{trimmed}
	}
	return segments
}

// ContainsLink 是否包含 http(s) 链接
func ContainsLink(text string) bool {
	return linkPattern.MatchString(text)
}

// Length 按字符计数
func Length(text string) int {
	return utf8.RuneCountInString(text)
}
