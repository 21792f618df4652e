package insurance

import (
	"context"
	"fmt"
	"strings"

	"github.com/careroute/careroute/internal/llm"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/sirupsen/logrus"
)

const systemPrompt = `You are a senior insurance coverage assistant. Determine whether something is covered or not.
Answer only from the policy excerpts you are given. If the excerpts do not settle the question, say so and
suggest the member contact their insurer.`

const noMatchReply = "I couldn't find anything in the policy documents about that. Please contact your insurance provider for coverage details."

type Agent struct {
	index  *Index
	gen    llm.Generator
	topK   int
	logger *logrus.Logger
}

// NewAgent builds the coverage agent. A nil generator answers with raw excerpts.
func NewAgent(index *Index, gen llm.Generator, topK int, logger *logrus.Logger) *Agent {
	if topK <= 0 {
		topK = 4
	}
	return &Agent{index: index, gen: gen, topK: topK, logger: logger}
}

func (a *Agent) ModelAvailable() bool {
	return a.gen != nil
}

// Answer never fails; errors come back as reply text.
func (a *Agent) Answer(ctx context.Context, query string) string {
	results := a.index.Search(query, a.topK)

	a.logger.WithFields(logrus.Fields{
		"query":   utils.Truncate(query, 50),
		"matches": len(results),
	}).Info("Coverage query received")

	if len(results) == 0 {
		return noMatchReply
	}

	if a.gen == nil {
		return formatExcerpts(results)
	}

	prompt := fmt.Sprintf("Member question: %s\n\nPolicy excerpts:\n%s\n\nAnswer the member's question.", query, formatExcerpts(results))
	answer, err := a.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		a.logger.WithError(err).Error("Error processing query")
		return fmt.Sprintf("Error processing your query: %v", err)
	}
	return answer
}

func formatExcerpts(results []Result) string {
	var b strings.Builder
	b.WriteString("Relevant policy excerpts:")
	for i, r := range results {
		fmt.Fprintf(&b, "\n\n[%d] %s (%s relevance)\n%s", i+1, r.Chunk.Title, r.Relevance, r.Chunk.Content)
	}
	return b.String()
}
