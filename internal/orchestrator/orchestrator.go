// Package orchestrator routes a query to the health or insurance agent and
// normalizes whatever comes back.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careroute/careroute/internal/agents"
	"github.com/careroute/careroute/internal/classifier"
	"github.com/careroute/careroute/internal/metrics"
	"github.com/careroute/careroute/internal/models"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	AgentHealth    = "health_doctor"
	AgentInsurance = "insurance"
	AgentError     = "error"
)

// HealthAgent answers doctor-search queries.
type HealthAgent interface {
	AskHealth(ctx context.Context, location, query string) (string, error)
}

// InsuranceAgent answers coverage queries. It never sees the location.
type InsuranceAgent interface {
	AskInsurance(ctx context.Context, query string) (string, error)
}

type Classifier interface {
	Classify(ctx context.Context, query, location string) classifier.Classification
}

// Recorder receives one record per processed query. Implementations must not block.
type Recorder interface {
	Record(record models.RoutingRecord)
}

// RoutingDecision says which agent handles the query and why.
type RoutingDecision struct {
	Category   classifier.Category
	Confidence float64
	Reasoning  string
	Forced     bool
	Source     string
}

// AgentResult is the normalized outcome of one downstream call.
type AgentResult struct {
	Success   bool
	Content   string
	AgentUsed string
	Error     string
}

type Options struct {
	AgentTimeout time.Duration
}

type Orchestrator struct {
	classifier Classifier
	health     HealthAgent
	insurance  InsuranceAgent
	recorder   Recorder
	opts       Options
	logger     *logrus.Logger
}

func New(c Classifier, health HealthAgent, insurance InsuranceAgent, opts Options, logger *logrus.Logger) *Orchestrator {
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = 30 * time.Second
	}
	return &Orchestrator{
		classifier: c,
		health:     health,
		insurance:  insurance,
		opts:       opts,
		logger:     logger,
	}
}

// WithRecorder attaches a routing recorder.
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// ParseForcedAgent maps a caller-supplied agent name to a category. "auto",
// empty and unrecognized names report false.
func ParseForcedAgent(agent string) (classifier.Category, bool) {
	switch strings.ToLower(strings.TrimSpace(agent)) {
	case "doctor", "health", "health_doctor":
		return classifier.HealthDoctor, true
	case "insurance":
		return classifier.Insurance, true
	default:
		return "", false
	}
}

// Process routes the query and returns a well-formed response. It never
// panics and never returns an error; failures are reported in the response.
func (o *Orchestrator) Process(ctx context.Context, location, query, forceAgent string) (resp models.QueryResponse) {
	start := time.Now()
	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = WithRequestID(ctx, requestID)
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.OrchestrationErrors.Inc()
			o.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"panic":      fmt.Sprint(r),
			}).Error("Orchestration failed")
			resp = models.QueryResponse{
				Result:     fmt.Sprintf("Orchestration error: %v", r),
				Success:    false,
				AgentUsed:  AgentError,
				Confidence: 0.0,
				Reasoning:  "Error in orchestration",
			}
		}
	}()

	decision := o.Route(ctx, query, location, forceAgent)
	result := o.dispatch(ctx, decision, location, query)
	elapsed := time.Since(start)

	o.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"query":       utils.Truncate(query, 100),
		"category":    decision.Category,
		"confidence":  decision.Confidence,
		"forced":      decision.Forced,
		"source":      decision.Source,
		"agent_used":  result.AgentUsed,
		"success":     result.Success,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("Query routed")

	o.record(requestID, location, query, decision, result, elapsed)

	return models.QueryResponse{
		Result:     result.Content,
		Success:    result.Success,
		AgentUsed:  result.AgentUsed,
		Confidence: decision.Confidence,
		Reasoning:  decision.Reasoning,
	}
}

// Route honors a forced agent or asks the classifier.
func (o *Orchestrator) Route(ctx context.Context, query, location, forceAgent string) RoutingDecision {
	var decision RoutingDecision

	if category, ok := ParseForcedAgent(forceAgent); ok {
		decision = RoutingDecision{Category: category, Confidence: 1.0, Forced: true, Source: "forced"}
		if category == classifier.Insurance {
			decision.Reasoning = "Forced to insurance agent"
		} else {
			decision.Reasoning = "Forced to health agent"
		}
	} else {
		c := o.classifier.Classify(ctx, query, location)
		decision = RoutingDecision{
			Category:   c.Category,
			Confidence: c.Confidence,
			Reasoning:  c.Reasoning,
			Source:     string(c.Source),
		}
	}

	// unknown routes to the health agent
	if decision.Category != classifier.Insurance {
		decision.Category = classifier.HealthDoctor
	}

	metrics.QueriesRouted.WithLabelValues(string(decision.Category), decision.Source).Inc()
	return decision
}

func (o *Orchestrator) dispatch(ctx context.Context, decision RoutingDecision, location, query string) AgentResult {
	ctx, cancel := context.WithTimeout(ctx, o.opts.AgentTimeout)
	defer cancel()

	start := time.Now()
	var result AgentResult
	if decision.Category == classifier.Insurance {
		result = o.callInsurance(ctx, query)
	} else {
		result = o.callHealth(ctx, location, query)
	}
	metrics.ObserveAgentCall(result.AgentUsed, result.Success, time.Since(start))
	return result
}

func (o *Orchestrator) callHealth(ctx context.Context, location, query string) AgentResult {
	content, err := o.health.AskHealth(ctx, location, query)
	if err != nil {
		o.logger.WithError(err).Warn("Health agent call failed")
		return AgentResult{
			Success:   false,
			Content:   describeHealthError(err),
			AgentUsed: AgentHealth,
			Error:     err.Error(),
		}
	}
	return AgentResult{Success: true, Content: content, AgentUsed: AgentHealth}
}

func (o *Orchestrator) callInsurance(ctx context.Context, query string) AgentResult {
	content, err := o.insurance.AskInsurance(ctx, query)
	if err != nil {
		o.logger.WithError(err).Warn("Insurance agent call failed")
		return AgentResult{
			Success:   false,
			Content:   fmt.Sprintf("Insurance agent temporarily unavailable: %v", err),
			AgentUsed: AgentInsurance,
			Error:     err.Error(),
		}
	}
	return AgentResult{Success: true, Content: content, AgentUsed: AgentInsurance}
}

func describeHealthError(err error) string {
	var statusErr *agents.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("Health agent error: %d", statusErr.StatusCode)
	}
	return fmt.Sprintf("Error contacting health agent: %v", err)
}

func (o *Orchestrator) record(requestID, location, query string, decision RoutingDecision, result AgentResult, elapsed time.Duration) {
	if o.recorder == nil {
		return
	}
	o.recorder.Record(models.RoutingRecord{
		RequestID:      requestID,
		QueryText:      query,
		Location:       location,
		Category:       string(decision.Category),
		Confidence:     decision.Confidence,
		Reasoning:      decision.Reasoning,
		Forced:         decision.Forced,
		ClassifiedBy:   decision.Source,
		AgentUsed:      result.AgentUsed,
		Success:        result.Success,
		ResponseTimeMs: int(elapsed.Milliseconds()),
	})
}
