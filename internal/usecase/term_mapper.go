package usecase

import (
	"log"
	"regexp"
	"strings"
	"unicode/utf8"
)

// termMapping maps a trigger phrase to the canonical search terms it expands to
type termMapping struct {
	trigger string
	terms   []string
}

// questionTermMappings is evaluated in definition order, so the order of the
// entries decides the order of the expanded terms.
var questionTermMappings = []termMapping{
	// Acetaminophen and pain
	{"acetaminofén", []string{"acetaminofén"}},
	{"acetaminofen", []string{"acetaminofén"}},
	{"paracetamol", []string{"acetaminofén"}},
	{"dolor", []string{"acetaminofén", "ibuprofeno", "dolor"}},
	{"dolor de cabeza", []string{"acetaminofén", "dolor"}},
	{"dolor cabeza", []string{"acetaminofén", "dolor"}},
	{"cabeza", []string{"acetaminofén", "dolor"}},
	{"fiebre", []string{"acetaminofén", "fiebre"}},
	{"analgésico", []string{"acetaminofén", "ibuprofeno"}},
	{"analgesico", []string{"acetaminofén", "ibuprofeno"}},

	// Cheap / generic
	{"económico", []string{"genérico"}},
	{"economico", []string{"genérico"}},
	{"barato", []string{"genérico"}},
	{"más barato", []string{"genérico"}},
	{"mas barato", []string{"genérico"}},
	{"genérico", []string{"genérico"}},
	{"generico", []string{"genérico"}},

	// Men's hair care
	{"cabello", []string{"gel", "shampoo", "cabello"}},
	{"pelo", []string{"gel", "shampoo", "cabello"}},
	{"hombre", []string{"masculino", "hombre"}},
	{"masculino", []string{"masculino", "hombre"}},
	{"gel", []string{"gel"}},
	{"fijador", []string{"gel"}},

	// Children
	{"niños", []string{"infantil", "pediátrico", "jarabe"}},
	{"niño", []string{"infantil", "pediátrico", "jarabe"}},
	{"bebé", []string{"infantil", "pediátrico"}},
	{"bebe", []string{"infantil", "pediátrico"}},
	{"infantil", []string{"infantil", "pediátrico"}},
	{"pediátrico", []string{"pediátrico"}},
	{"pediatrico", []string{"pediátrico"}},
	{"jarabe", []string{"jarabe"}},

	// Other
	{"vitaminas", []string{"vitaminas", "complejo"}},
	{"cansancio", []string{"vitaminas", "complejo"}},
	{"fatiga", []string{"vitaminas", "complejo"}},
	{"caspa", []string{"anticaspa", "shampoo"}},
	{"anticaspa", []string{"anticaspa"}},
}

// questionStopWords are Spanish question and function words dropped by the fallback tokenizer
var questionStopWords = map[string]bool{
	"que": true, "qué": true, "cual": true, "cuál": true,
	"para": true, "con": true, "por": true,
	"más": true, "mas": true, "menos": true, "muy": true,
	"cómo": true, "como": true, "dónde": true, "donde": true,
	"cuándo": true, "cuando": true,
	"necesito": true, "quiero": true, "busco": true,
	"recomiendas": true, "recomiendan": true,
}

var questionPunctuationPattern = regexp.MustCompile(`[¿?¡!.,;:]`)

// minFallbackTokenLength is exclusive: tokens must be longer than this many characters
const minFallbackTokenLength = 2

// TermMapper turns natural-language questions into search terms
type TermMapper struct {
	mappings           []termMapping
	enableDebugLogging bool
}

// NewTermMapper creates a term mapper backed by the built-in phrase table
func NewTermMapper(enableDebugLogging bool) *TermMapper {
	return &TermMapper{
		mappings:           questionTermMappings,
		enableDebugLogging: enableDebugLogging,
	}
}

// MapToTerms maps a question to an ordered, deduplicated list of lower-cased search terms.
// Trigger phrases are matched as plain substrings; when none matches, the question is
// tokenized and stop words are dropped. The result may be empty.
func (m *TermMapper) MapToTerms(question string) []string {
	lowerQuestion := strings.ToLower(question)

	var extracted []string
	for _, mapping := range m.mappings {
		if strings.Contains(lowerQuestion, mapping.trigger) {
			extracted = append(extracted, mapping.terms...)
		}
	}

	if len(extracted) == 0 {
		extracted = fallbackTokens(lowerQuestion)
	}

	terms := dedupeTerms(extracted)

	if m.enableDebugLogging {
		log.Printf("[TERMS] Question: %q → Terms: %v", question, terms)
	}

	return terms
}

// fallbackTokens splits an already lower-cased question into keyword tokens
func fallbackTokens(lowerQuestion string) []string {
	cleaned := questionPunctuationPattern.ReplaceAllString(lowerQuestion, " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) <= minFallbackTokenLength {
			continue
		}
		if questionStopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// dedupeTerms removes duplicates keeping the first occurrence
func dedupeTerms(terms []string) []string {
	result := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	return result
}
