package usecase

import (
	"strings"

	"github.com/farmasearch/backend/internal/domain"
)

// Field weights applied once per matching term
const (
	weightName             = 10.0
	weightNamePrefix       = 5.0 // Name starts with the term
	weightBrand            = 8.0
	weightTag              = 6.0 // Per matching tag
	weightPresentation     = 8.0
	weightCategory         = 5.0
	weightSubcategory      = 5.0
	weightActiveIngredient = 5.0
	weightDescriptionBoost = 3.0 // Description after a direct match
	weightDescription      = 1.0
)

// Post-accumulation adjustments
const (
	minTermMatchRatio      = 0.6
	coveragePenalty        = 0.1
	noDirectMatchPenalty   = 0.2
	specificTermPenalty    = 0.05
	multiMatchBonusPerTerm = 0.2
)

// specificTerms are presentation forms that must appear in name, presentation or tags
var specificTerms = map[string]bool{
	"gel":      true,
	"shampoo":  true,
	"jarabe":   true,
	"tabletas": true,
	"cápsulas": true,
}

// ScoringDocument holds the lower-cased fields of a product.
// Build it once per product with NewScoringDocument and reuse it across queries.
type ScoringDocument struct {
	Product domain.Product

	name             string
	brand            string
	description      string
	presentation     string
	category         string
	subcategory      string
	activeIngredient string
	tags             []string
}

// NewScoringDocument lower-cases the searchable fields of a product.
// Missing fields are plain empty strings and simply never match.
func NewScoringDocument(p domain.Product) ScoringDocument {
	tags := make([]string, len(p.Tags))
	for i, tag := range p.Tags {
		tags[i] = strings.ToLower(tag)
	}

	return ScoringDocument{
		Product:          p,
		name:             strings.ToLower(p.Name),
		brand:            strings.ToLower(p.Brand),
		description:      strings.ToLower(p.Description),
		presentation:     strings.ToLower(p.Presentation),
		category:         strings.ToLower(p.Category),
		subcategory:      strings.ToLower(p.Subcategory),
		activeIngredient: strings.ToLower(p.ActiveIngredient),
		tags:             tags,
	}
}

// termMatchSummary is what the adjustment stages need to know about the accumulation pass
type termMatchSummary struct {
	totalTerms       int
	matchedTerms     int
	hasDirectMatch   bool
	hasSpecificTerm  bool
	hasSpecificMatch bool
}

// scoreAdjustment transforms the accumulated score given the match summary
type scoreAdjustment func(score float64, summary termMatchSummary) float64

// scoreAdjustments run in this exact order; floating-point results depend on it
var scoreAdjustments = []scoreAdjustment{
	applyCoveragePenalty,
	applyNoDirectMatchPenalty,
	applySpecificTermPenalty,
	applyMultiMatchBonus,
}

// RelevanceScorer computes weighted multi-field relevance scores for products.
// It holds no state and is safe for concurrent use.
type RelevanceScorer struct{}

// NewRelevanceScorer creates a new relevance scorer
func NewRelevanceScorer() *RelevanceScorer {
	return &RelevanceScorer{}
}

// ScoreProduct scores a product that has not been prepared as a ScoringDocument
func (s *RelevanceScorer) ScoreProduct(p domain.Product, terms []string) float64 {
	doc := NewScoringDocument(p)
	return s.Score(&doc, terms)
}

// Score returns a non-negative relevance score of the document for the given terms.
// An empty term list always scores 0.
func (s *RelevanceScorer) Score(doc *ScoringDocument, terms []string) float64 {
	score := 0.0
	summary := termMatchSummary{totalTerms: len(terms)}

	for _, term := range terms {
		lowerTerm := strings.ToLower(term)
		termMatched := false

		if strings.Contains(doc.name, lowerTerm) {
			score += weightName
			if strings.HasPrefix(doc.name, lowerTerm) {
				score += weightNamePrefix
			}
			termMatched = true
			summary.hasDirectMatch = true
		}

		if strings.Contains(doc.brand, lowerTerm) {
			score += weightBrand
			termMatched = true
			summary.hasDirectMatch = true
		}

		for _, tag := range doc.tags {
			if strings.Contains(tag, lowerTerm) {
				score += weightTag
				termMatched = true
				summary.hasDirectMatch = true
			}
		}

		if strings.Contains(doc.presentation, lowerTerm) {
			score += weightPresentation
			termMatched = true
			summary.hasDirectMatch = true
		}

		if strings.Contains(doc.category, lowerTerm) {
			score += weightCategory
			termMatched = true
		}
		if strings.Contains(doc.subcategory, lowerTerm) {
			score += weightSubcategory
			termMatched = true
		}

		if strings.Contains(doc.activeIngredient, lowerTerm) {
			score += weightActiveIngredient
			termMatched = true
		}

		// hasDirectMatch is sticky, so a direct hit from an earlier term also boosts this one
		if strings.Contains(doc.description, lowerTerm) {
			if summary.hasDirectMatch {
				score += weightDescriptionBoost
			} else {
				score += weightDescription
			}
			termMatched = true
		}

		if termMatched {
			summary.matchedTerms++
		}

		if specificTerms[lowerTerm] {
			summary.hasSpecificTerm = true
		}
		if doc.matchesSpecificField(lowerTerm) {
			summary.hasSpecificMatch = true
		}
	}

	for _, adjust := range scoreAdjustments {
		score = adjust(score, summary)
	}

	return score
}

// matchesSpecificField reports whether the term appears in name, presentation or any tag
func (d *ScoringDocument) matchesSpecificField(lowerTerm string) bool {
	if strings.Contains(d.name, lowerTerm) || strings.Contains(d.presentation, lowerTerm) {
		return true
	}
	for _, tag := range d.tags {
		if strings.Contains(tag, lowerTerm) {
			return true
		}
	}
	return false
}

// applyCoveragePenalty penalizes multi-term queries where under 60% of the terms matched
func applyCoveragePenalty(score float64, summary termMatchSummary) float64 {
	if summary.totalTerms > 1 {
		ratio := float64(summary.matchedTerms) / float64(summary.totalTerms)
		if ratio < minTermMatchRatio {
			return score * coveragePenalty
		}
	}
	return score
}

// applyNoDirectMatchPenalty penalizes products matched only through weak fields
func applyNoDirectMatchPenalty(score float64, summary termMatchSummary) float64 {
	if !summary.hasDirectMatch {
		return score * noDirectMatchPenalty
	}
	return score
}

// applySpecificTermPenalty requires queries for a presentation form to hit a strong field
func applySpecificTermPenalty(score float64, summary termMatchSummary) float64 {
	if summary.hasSpecificTerm && !summary.hasSpecificMatch {
		return score * specificTermPenalty
	}
	return score
}

// applyMultiMatchBonus rewards every matched term beyond the first by 20%
func applyMultiMatchBonus(score float64, summary termMatchSummary) float64 {
	if summary.matchedTerms > 1 {
		return score * (1 + float64(summary.matchedTerms-1)*multiMatchBonusPerTerm)
	}
	return score
}
