// Package classifier decides whether a query belongs to the doctor-search
// agent or the insurance agent.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careroute/careroute/pkg/utils"
	"github.com/sirupsen/logrus"
)

type Category string

const (
	HealthDoctor Category = "health_doctor"
	Insurance    Category = "insurance"
	Unknown      Category = "unknown"
)

// Label is the token the model is asked to answer with.
func (c Category) Label() string {
	return strings.ToUpper(string(c))
}

type Source string

const (
	SourceLLM   Source = "llm"
	SourceRules Source = "rules"
	SourceCache Source = "cache"
)

// Classification is the outcome of a single classify call.
type Classification struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Source     Source   `json:"source"`
}

// ErrUnrecognizedLabel is returned when the model answers with neither label.
var ErrUnrecognizedLabel = errors.New("llm response contained no recognized label")

// Generator is the text-generation collaborator used on the primary path.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Cache stores model-derived classifications.
type Cache interface {
	GetClassification(ctx context.Context, key string) (*Classification, error)
	SetClassification(ctx context.Context, key string, c Classification, ttl time.Duration) error
}

const systemPrompt = `You are a healthcare query router. Classify each user query into exactly one category.

HEALTH_DOCTOR: the user wants to find a doctor, physician, specialist, clinic or hospital, or has symptoms, treatment or diagnosis questions.
Keywords: doctor, physician, specialist, cardiologist, pediatrician, dermatologist, neurologist, symptoms, treatment, find a doctor, medical help.

INSURANCE: the user asks what their plan covers or pays, or about benefits, claims, deductibles, copays, premiums or reimbursement.
Keywords: insurance, coverage, covered, policy, claim, benefits, deductible, copay, premium, reimbursement, out of pocket.

If the user is looking for a provider and only mentions insurance in passing, answer HEALTH_DOCTOR.
Respond with ONLY one of: HEALTH_DOCTOR or INSURANCE`

type Options struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

type Classifier struct {
	generator Generator
	cache     Cache
	opts      Options
	logger    *logrus.Logger
}

// New returns a Classifier. A nil generator puts it in rules-only mode and a
// nil cache disables caching.
func New(generator Generator, cache Cache, opts Options, logger *logrus.Logger) *Classifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Classifier{
		generator: generator,
		cache:     cache,
		opts:      opts,
		logger:    logger,
	}
}

// Classify assigns a category to the query. It never fails: any problem on
// the model path falls back to ClassifyByRules.
func (c *Classifier) Classify(ctx context.Context, query, location string) Classification {
	if c.generator == nil {
		return ClassifyByRules(query)
	}

	key := cacheKey(query, location)
	if cached, ok := c.lookup(ctx, key); ok {
		return cached
	}

	result, err := c.classifyWithLLM(ctx, query, location)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"query": utils.Truncate(query, 100),
			"error": err.Error(),
		}).Warn("LLM classification failed, using keyword rules")
		return ClassifyByRules(query)
	}

	c.store(ctx, key, result)
	return result
}

func (c *Classifier) classifyWithLLM(ctx context.Context, query, location string) (result Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("llm classification panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	answer, err := c.generator.Generate(ctx, systemPrompt, buildPrompt(query, location))
	if err != nil {
		return Classification{}, fmt.Errorf("classification request failed: %w", err)
	}

	return parseLabel(answer)
}

func buildPrompt(query, location string) string {
	full := query
	if strings.TrimSpace(location) != "" {
		full = fmt.Sprintf("Location: %s\nQuery: %s", location, query)
	}
	return fmt.Sprintf("Classify this user query: \"%s\"\nRespond with ONLY one of: HEALTH_DOCTOR or INSURANCE", full)
}

func parseLabel(answer string) (Classification, error) {
	upper := strings.ToUpper(answer)
	switch {
	case strings.Contains(upper, HealthDoctor.Label()):
		return Classification{
			Category:   HealthDoctor,
			Confidence: 0.8,
			Reasoning:  "Query contains health/medical keywords",
			Source:     SourceLLM,
		}, nil
	case strings.Contains(upper, Insurance.Label()):
		return Classification{
			Category:   Insurance,
			Confidence: 0.8,
			Reasoning:  "Query contains insurance-related keywords",
			Source:     SourceLLM,
		}, nil
	default:
		return Classification{}, fmt.Errorf("%w: %q", ErrUnrecognizedLabel, utils.Truncate(answer, 50))
	}
}

func (c *Classifier) lookup(ctx context.Context, key string) (Classification, bool) {
	if c.cache == nil {
		return Classification{}, false
	}
	cached, err := c.cache.GetClassification(ctx, key)
	if err != nil || cached == nil {
		return Classification{}, false
	}
	result := *cached
	result.Source = SourceCache
	return result, true
}

func (c *Classifier) store(ctx context.Context, key string, result Classification) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SetClassification(ctx, key, result, c.opts.CacheTTL); err != nil {
		c.logger.WithError(err).Debug("Failed to cache classification")
	}
}

func cacheKey(query, location string) string {
	normalized := strings.ToLower(strings.TrimSpace(location)) + "|" + strings.ToLower(strings.TrimSpace(query))
	return utils.MD5Hash(normalized)
}
