package usecase

import (
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxQueryLength bounds the preprocessed keyword query, in characters
const MaxQueryLength = 200

var (
	// Lone punctuation left between words, e.g. "gel , fijador"
	orphanedPunctuationPattern = regexp.MustCompile(`\s+[,\-;:]+\s+`)
	trailingPunctuationPattern = regexp.MustCompile(`[,\-;:]+\s*$`)
	leadingPunctuationPattern  = regexp.MustCompile(`^\s*[,\-;:]+`)
	multiSpacePattern          = regexp.MustCompile(`\s+`)
	cacheKeyNoisePattern       = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// QueryPreprocessor cleans raw keyword queries before they reach an index
type QueryPreprocessor struct {
	enableDebugLogging bool
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(enableDebugLogging bool) *QueryPreprocessor {
	return &QueryPreprocessor{
		enableDebugLogging: enableDebugLogging,
	}
}

// PreprocessQuery strips control characters and orphaned punctuation, collapses
// whitespace and caps the query at MaxQueryLength characters. Case is preserved.
func (p *QueryPreprocessor) PreprocessQuery(query string) string {
	if query == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, query)

	cleaned = cleanOrphanedPunctuation(cleaned)
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if utf8.RuneCountInString(cleaned) > MaxQueryLength {
		runes := []rune(cleaned)[:MaxQueryLength]
		cleaned = string(runes)
		// Cut at a word boundary when one is reasonably close
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > len(cleaned)/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	if p.enableDebugLogging && cleaned != query {
		log.Printf("[PREPROCESS] Input: %q → Output: %q", query, cleaned)
	}

	return cleaned
}

// cleanOrphanedPunctuation removes punctuation that is left alone between words
func cleanOrphanedPunctuation(s string) string {
	result := orphanedPunctuationPattern.ReplaceAllString(s, " ")
	result = trailingPunctuationPattern.ReplaceAllString(result, "")
	return leadingPunctuationPattern.ReplaceAllString(result, "")
}

// normalizeForCacheKey lower-cases s, drops symbols and collapses whitespace.
// Accented letters are kept so "acetaminofén" and "acetaminofen" stay distinct keys.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = cacheKeyNoisePattern.ReplaceAllString(result, "")
	result = multiSpacePattern.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// keywordCacheKey builds the cache key of a keyword search.
// Format: "search:keyword:{query}:{filters}:{limit}:{page}" with filters sorted by key.
func keywordCacheKey(query string, filters map[string]string, limit, page int) string {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + normalizeForCacheKey(filters[k])
	}

	return fmt.Sprintf("search:keyword:%s:%s:%d:%d",
		normalizeForCacheKey(query), strings.Join(parts, ","), limit, page)
}
