// Package seeder turns scraped policy pages into cleaned, chunked documents.
package seeder

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// ContentProcessor handles text processing and cleanup
type ContentProcessor struct {
	inlineWhitespace *regexp.Regexp
	htmlTags         *regexp.Regexp
	markdownLinks    *regexp.Regexp
	sentenceBreak    *regexp.Regexp
}

func NewContentProcessor() *ContentProcessor {
	return &ContentProcessor{
		inlineWhitespace: regexp.MustCompile(`[ \t\f\r\v]+`),
		htmlTags:         regexp.MustCompile(`<[^>]*>`),
		markdownLinks:    regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`),
		sentenceBreak:    regexp.MustCompile(`[.!?]+\s+`),
	}
}

// CleanContent strips markup and normalizes whitespace, keeping paragraph breaks.
func (cp *ContentProcessor) CleanContent(content string) string {
	content = cp.htmlTags.ReplaceAllString(content, "")

	// keep the link text
	content = cp.markdownLinks.ReplaceAllString(content, "$1")

	content = cp.inlineWhitespace.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	var cleaned []string
	emptyLines := 0

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			emptyLines++
			if emptyLines <= 1 {
				cleaned = append(cleaned, "")
			}
		} else {
			emptyLines = 0
			cleaned = append(cleaned, line)
		}
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// coverageTerms are phrases that mark a passage as relevant to coverage questions.
var coverageTerms = []string{
	"covered", "not covered", "coverage", "exclusion", "excluded", "limitation",
	"deductible", "copay", "copayment", "coinsurance", "out-of-pocket", "premium",
	"prior authorization", "preauthorization", "referral", "in-network", "out-of-network",
	"claim", "appeal", "formulary", "prescription", "preventive", "emergency",
	"mental health", "maternity", "vision", "dental", "hospital", "outpatient",
	"inpatient", "mri", "x-ray", "physical therapy", "specialist",
}

// ExtractKeywords lists the coverage terms that appear in content.
func (cp *ContentProcessor) ExtractKeywords(content string) []string {
	var keywords []string
	contentLower := strings.ToLower(content)

	for _, term := range coverageTerms {
		if strings.Contains(contentLower, term) {
			keywords = append(keywords, term)
		}
	}

	return keywords
}

// SplitIntoChunks splits content into smaller chunks for better search
func (cp *ContentProcessor) SplitIntoChunks(content string, maxChunkSize int) []string {
	if len(content) <= maxChunkSize {
		return []string{content}
	}

	paragraphs := strings.Split(content, "\n\n")
	var chunks []string
	var currentChunk strings.Builder

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if currentChunk.Len() > 0 && currentChunk.Len()+len(paragraph)+2 > maxChunkSize {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			currentChunk.Reset()
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString("\n\n")
		}
		currentChunk.WriteString(paragraph)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	// a single paragraph can still be too long
	var finalChunks []string
	for _, chunk := range chunks {
		if len(chunk) <= maxChunkSize {
			finalChunks = append(finalChunks, chunk)
		} else {
			finalChunks = append(finalChunks, cp.splitBySentences(chunk, maxChunkSize)...)
		}
	}

	return finalChunks
}

func (cp *ContentProcessor) splitBySentences(text string, maxSize int) []string {
	sentences := cp.sentenceBreak.Split(text, -1)
	var chunks []string
	var currentChunk strings.Builder

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if currentChunk.Len() > 0 && currentChunk.Len()+len(sentence)+2 > maxSize {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			currentChunk.Reset()
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString(". ")
		}
		currentChunk.WriteString(sentence)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	return chunks
}

// CountWords estimates word count in text
func (cp *ContentProcessor) CountWords(text string) int {
	if text == "" {
		return 0
	}

	words := strings.FieldsFunc(text, func(c rune) bool {
		return unicode.IsSpace(c) || unicode.IsPunct(c)
	})

	count := 0
	for _, word := range words {
		if len(strings.TrimSpace(word)) > 1 {
			count++
		}
	}

	return count
}

// Categorize labels a policy passage by the kind of question it answers.
func (cp *ContentProcessor) Categorize(content string) string {
	contentLower := strings.ToLower(content)

	scores := map[string]int{}
	for category, terms := range categoryTerms {
		for _, term := range terms {
			scores[category] += strings.Count(contentLower, term)
		}
	}

	best, bestScore := "general", 0
	categories := make([]string, 0, len(scores))
	for category := range scores {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		if scores[category] > bestScore {
			best, bestScore = category, scores[category]
		}
	}
	return best
}

var categoryTerms = map[string][]string{
	"exclusions": {"not covered", "exclusion", "excluded", "limitation"},
	"costs":      {"deductible", "copay", "coinsurance", "out-of-pocket", "premium"},
	"claims":     {"claim", "appeal", "reimbursement"},
	"network":    {"in-network", "out-of-network", "provider network", "referral"},
	"coverage":   {"covered", "benefit", "coverage"},
}
