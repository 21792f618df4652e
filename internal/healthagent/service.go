// Package healthagent answers doctor-search questions using the doctor
// search server and, when configured, an LLM.
package healthagent

import (
	"context"
	"fmt"
	"time"

	"github.com/careroute/careroute/internal/extractor"
	"github.com/careroute/careroute/internal/llm"
	"github.com/careroute/careroute/pkg/utils"
	"github.com/sirupsen/logrus"
)

const systemPrompt = `You are a helpful healthcare assistant. Help users find doctors and understand their healthcare options.
Only recommend doctors that appear in the provided data. Never give a diagnosis.`

// DoctorSearcher is implemented by mcp.Client.
type DoctorSearcher interface {
	DoctorSearch(ctx context.Context, state string) (string, error)
}

type Options struct {
	// DefaultState is used when neither the location nor the query names a
	// state. Empty disables the directory lookup for such queries.
	DefaultState string
	MCPTimeout   time.Duration
}

type Service struct {
	extractor *extractor.Extractor
	doctors   DoctorSearcher
	gen       llm.Generator
	opts      Options
	logger    *logrus.Logger
}

// NewService wires the agent. A nil generator runs the agent without an LLM.
func NewService(doctors DoctorSearcher, gen llm.Generator, opts Options, logger *logrus.Logger) *Service {
	if opts.MCPTimeout <= 0 {
		opts.MCPTimeout = 10 * time.Second
	}
	return &Service{
		extractor: extractor.New(),
		doctors:   doctors,
		gen:       gen,
		opts:      opts,
		logger:    logger,
	}
}

func (s *Service) ModelAvailable() bool {
	return s.gen != nil
}

// ResolveState picks the state from the location first, then the query.
func (s *Service) ResolveState(location, query string) string {
	if state, ok := s.extractor.Extract(location); ok {
		return state
	}
	if state, ok := s.extractor.Extract(query); ok {
		return state
	}
	return s.opts.DefaultState
}

// Answer always produces text; failures degrade into an explanatory reply.
func (s *Service) Answer(ctx context.Context, location, query string) string {
	state := s.ResolveState(location, query)
	doctorData := s.lookupDoctors(ctx, state)

	s.logger.WithFields(logrus.Fields{
		"state":       state,
		"query":       utils.Truncate(query, 50),
		"has_doctors": doctorData != "",
	}).Info("Health query received")

	if s.gen == nil {
		if doctorData != "" {
			return fmt.Sprintf("Found doctors in %s: %s... (AI assistant temporarily unavailable)", state, utils.Truncate(doctorData, 200))
		}
		return "Healthcare query received. Our doctor database is temporarily unavailable."
	}

	var prompt string
	if doctorData != "" {
		prompt = fmt.Sprintf("User query: %s\n\nAvailable doctors in %s: %s\n\n"+
			"Please provide a helpful response about healthcare options based on the user's query and the available doctor information.",
			query, state, doctorData)
	} else {
		prompt = fmt.Sprintf("Healthcare query: %s. Please provide general healthcare guidance.", query)
	}

	answer, err := s.gen.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		s.logger.WithError(err).Warn("LLM generation failed")
		return fmt.Sprintf("I received your healthcare question: '%s'. I'm currently experiencing technical difficulties. Please try again later. (Error: %v)", query, err)
	}
	return answer
}

func (s *Service) lookupDoctors(ctx context.Context, state string) string {
	if state == "" || s.doctors == nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.MCPTimeout)
	defer cancel()

	data, err := s.doctors.DoctorSearch(ctx, state)
	if err != nil {
		s.logger.WithError(err).WithField("state", state).Warn("Doctor search failed")
		return ""
	}
	return data
}
