// Package insurance is the coverage agent: a keyword index over policy
// documents, the answering logic and its websocket server.
package insurance

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/careroute/careroute/internal/seeder"
)

const maxChunkSize = 1200

// noiseWords never count as search terms.
var noiseWords = map[string]bool{
	"please": true, "help": true, "how": true, "can": true, "you": true, "the": true,
	"are": true, "was": true, "were": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "must": true, "shall": true, "does": true, "did": true,
	"don't": true, "doesn't": true, "won't": true, "and": true, "for": true, "what": true,
	"this": true, "that": true, "with": true, "from": true, "about": true, "under": true,
	"plan": true, "policy": true, "insurance": true, "get": true, "any": true, "there": true,
}

// Chunk is one searchable piece of a policy document.
type Chunk struct {
	Title    string
	Source   string
	Content  string
	Keywords []string

	lower string
}

type Result struct {
	Chunk     Chunk
	Score     float64
	Relevance string
}

// Index is safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	chunks    []Chunk
	processor *seeder.ContentProcessor
}

func NewIndex() *Index {
	return &Index{processor: seeder.NewContentProcessor()}
}

// Add cleans, chunks and indexes a document. It returns the number of chunks added.
func (idx *Index) Add(title, source, content string) int {
	cleaned := idx.processor.CleanContent(content)
	if cleaned == "" {
		return 0
	}

	var added []Chunk
	for _, text := range idx.processor.SplitIntoChunks(cleaned, maxChunkSize) {
		added = append(added, idx.newChunk(title, source, text, nil))
	}

	idx.mu.Lock()
	idx.chunks = append(idx.chunks, added...)
	idx.mu.Unlock()
	return len(added)
}

// AddChunk indexes text that is already chunked, such as a stored policy document.
func (idx *Index) AddChunk(title, source, content string, keywords []string) {
	chunk := idx.newChunk(title, source, content, keywords)
	idx.mu.Lock()
	idx.chunks = append(idx.chunks, chunk)
	idx.mu.Unlock()
}

func (idx *Index) newChunk(title, source, content string, keywords []string) Chunk {
	if keywords == nil {
		keywords = idx.processor.ExtractKeywords(content)
	}
	return Chunk{
		Title:    title,
		Source:   source,
		Content:  content,
		Keywords: keywords,
		lower:    strings.ToLower(content),
	}
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// Search returns up to k chunks ranked by the share of query terms they contain.
func (idx *Index) Search(query string, k int) []Result {
	terms := Tokenize(query)
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []Result
	for _, chunk := range idx.chunks {
		matched := 0
		for _, term := range terms {
			if strings.Contains(chunk.lower, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		score := float64(matched) / float64(len(terms))
		results = append(results, Result{
			Chunk:     chunk,
			Score:     score,
			Relevance: determineRelevance(score),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Tokenize lowercases the query and drops punctuation, short words and noise words.
func Tokenize(query string) []string {
	seen := make(map[string]bool)
	var terms []string

	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(word) <= 2 || noiseWords[word] || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
	}

	return terms
}

// determineRelevance converts numeric score to text relevance
func determineRelevance(score float64) string {
	if score >= 0.8 {
		return "high"
	} else if score >= 0.6 {
		return "medium"
	} else {
		return "low"
	}
}
