package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/careroute/careroute/internal/agents"
	"github.com/careroute/careroute/internal/classifier"
	"github.com/careroute/careroute/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClassifier struct {
	result classifier.Classification
	panics bool
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, query, location string) classifier.Classification {
	f.calls++
	if f.panics {
		panic("keyword table corrupted")
	}
	return f.result
}

type fakeHealth struct {
	reply    string
	err      error
	block    bool
	calls    int
	location string
}

func (f *fakeHealth) AskHealth(ctx context.Context, location, query string) (string, error) {
	f.calls++
	f.location = location
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

type fakeInsurance struct {
	reply string
	err   error
	calls int
	query string
}

func (f *fakeInsurance) AskInsurance(ctx context.Context, query string) (string, error) {
	f.calls++
	f.query = query
	return f.reply, f.err
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []models.RoutingRecord
}

func (m *memoryRecorder) Record(r models.RoutingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
}

func rulesClassifier() *fakeClassifier {
	return &fakeClassifier{result: classifier.Classification{
		Category:   classifier.HealthDoctor,
		Confidence: 0.7,
		Reasoning:  "Health keywords found: 1",
		Source:     classifier.SourceRules,
	}}
}

func TestProcess_ForcedInsuranceSkipsClassifier(t *testing.T) {
	for _, query := range []string{"", "find me a doctor", "what is my copay"} {
		cls := rulesClassifier()
		health := &fakeHealth{reply: "doctors"}
		insurance := &fakeInsurance{reply: "MRI is covered"}
		o := New(cls, health, insurance, Options{}, logrus.New())

		resp := o.Process(context.Background(), "GA", query, "insurance")

		assert.Equal(t, 0, cls.calls, query)
		assert.Equal(t, 0, health.calls, query)
		assert.Equal(t, 1, insurance.calls, query)
		assert.Equal(t, query, insurance.query)
		assert.Equal(t, models.QueryResponse{
			Result:     "MRI is covered",
			Success:    true,
			AgentUsed:  "insurance",
			Confidence: 1.0,
			Reasoning:  "Forced to insurance agent",
		}, resp)
	}
}

func TestProcess_ForcedHealthAliases(t *testing.T) {
	for _, alias := range []string{"doctor", "health", " Health ", "DOCTOR"} {
		cls := rulesClassifier()
		health := &fakeHealth{reply: "Dr. Sarah Mitchell"}
		o := New(cls, health, &fakeInsurance{}, Options{}, logrus.New())

		resp := o.Process(context.Background(), "atlanta", "does my plan cover MRI", alias)

		assert.Equal(t, 0, cls.calls, alias)
		assert.Equal(t, "atlanta", health.location)
		assert.Equal(t, "health_doctor", resp.AgentUsed)
		assert.Equal(t, 1.0, resp.Confidence)
		assert.Equal(t, "Forced to health agent", resp.Reasoning)
	}
}

func TestProcess_AutoUsesClassifier(t *testing.T) {
	for _, agent := range []string{"auto", "", "billing"} {
		cls := &fakeClassifier{result: classifier.Classification{
			Category:   classifier.Insurance,
			Confidence: 0.8,
			Reasoning:  "Strong insurance indicators found: 1",
			Source:     classifier.SourceRules,
		}}
		insurance := &fakeInsurance{reply: "Your deductible is $500"}
		o := New(cls, &fakeHealth{}, insurance, Options{}, logrus.New())

		resp := o.Process(context.Background(), "", "my deductible", agent)

		assert.Equal(t, 1, cls.calls, agent)
		assert.True(t, resp.Success)
		assert.Equal(t, "insurance", resp.AgentUsed)
		assert.Equal(t, 0.8, resp.Confidence)
		assert.Equal(t, "Strong insurance indicators found: 1", resp.Reasoning)
	}
}

func TestProcess_UnknownCategoryGoesToHealth(t *testing.T) {
	cls := &fakeClassifier{result: classifier.Classification{Category: classifier.Unknown, Confidence: 0.3}}
	health := &fakeHealth{reply: "general guidance"}
	o := New(cls, health, &fakeInsurance{}, Options{}, logrus.New())

	resp := o.Process(context.Background(), "", "hello", "auto")
	assert.Equal(t, 1, health.calls)
	assert.Equal(t, "health_doctor", resp.AgentUsed)
}

func TestProcess_HealthAgentFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transport", errors.New("connection refused"), "Error contacting health agent: connection refused"},
		{"status", &agents.StatusError{StatusCode: 503}, "Health agent error: 503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(rulesClassifier(), &fakeHealth{err: tt.err}, &fakeInsurance{}, Options{}, logrus.New())

			resp := o.Process(context.Background(), "GA", "need a doctor", "auto")
			assert.False(t, resp.Success)
			assert.Equal(t, "health_doctor", resp.AgentUsed)
			assert.Equal(t, tt.want, resp.Result)
			assert.Equal(t, 0.7, resp.Confidence)
		})
	}
}

func TestProcess_InsuranceAgentFailure(t *testing.T) {
	insurance := &fakeInsurance{err: errors.New("dial tcp: refused")}
	o := New(rulesClassifier(), &fakeHealth{}, insurance, Options{}, logrus.New())

	resp := o.Process(context.Background(), "", "copay?", "insurance")
	assert.False(t, resp.Success)
	assert.Equal(t, "insurance", resp.AgentUsed)
	assert.Equal(t, "Insurance agent temporarily unavailable: dial tcp: refused", resp.Result)
}

func TestProcess_AgentTimeout(t *testing.T) {
	health := &fakeHealth{block: true}
	o := New(rulesClassifier(), health, &fakeInsurance{}, Options{AgentTimeout: 20 * time.Millisecond}, logrus.New())

	start := time.Now()
	resp := o.Process(context.Background(), "", "need a doctor", "doctor")
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Result, "deadline exceeded")
}

func TestProcess_RecoversFromPanic(t *testing.T) {
	cls := &fakeClassifier{panics: true}
	o := New(cls, &fakeHealth{}, &fakeInsurance{}, Options{}, logrus.New())

	resp := o.Process(context.Background(), "", "anything", "auto")
	assert.Equal(t, models.QueryResponse{
		Result:     "Orchestration error: keyword table corrupted",
		Success:    false,
		AgentUsed:  "error",
		Confidence: 0.0,
		Reasoning:  "Error in orchestration",
	}, resp)
}

func TestProcess_Records(t *testing.T) {
	rec := &memoryRecorder{}
	o := New(rulesClassifier(), &fakeHealth{reply: "ok"}, &fakeInsurance{}, Options{}, logrus.New()).WithRecorder(rec)

	ctx := WithRequestID(context.Background(), "req-42")
	o.Process(ctx, "Denver", "knee pain specialist", "auto")

	require.Len(t, rec.records, 1)
	r := rec.records[0]
	assert.Equal(t, "req-42", r.RequestID)
	assert.Equal(t, "knee pain specialist", r.QueryText)
	assert.Equal(t, "Denver", r.Location)
	assert.Equal(t, "health_doctor", r.Category)
	assert.Equal(t, "rules", r.ClassifiedBy)
	assert.False(t, r.Forced)
	assert.True(t, r.Success)
}

func TestParseForcedAgent(t *testing.T) {
	c, ok := ParseForcedAgent("Insurance")
	assert.True(t, ok)
	assert.Equal(t, classifier.Insurance, c)

	_, ok = ParseForcedAgent("auto")
	assert.False(t, ok)
}

type fakeRoutingRepo struct {
	mu      sync.Mutex
	records []models.RoutingRecord
	err     error
	block   bool
	ctxErrs []error
}

func (f *fakeRoutingRepo) Create(ctx context.Context, r *models.RoutingRecord) error {
	if f.block {
		<-ctx.Done()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *r)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func (f *fakeRoutingRepo) saved() []models.RoutingRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RoutingRecord(nil), f.records...)
}

func (f *fakeRoutingRepo) GetRecent(limit int) ([]models.RoutingRecord, error) { return nil, nil }

func (f *fakeRoutingRepo) CountByCategory() ([]models.CategoryCount, error) { return nil, nil }

func TestRepositoryRecorder(t *testing.T) {
	repo := &fakeRoutingRepo{err: errors.New("db down")}
	rec := NewRepositoryRecorder(repo, logrus.New())
	rec.Record(models.RoutingRecord{RequestID: "r1", QueryText: "q"})

	require.NoError(t, rec.Close(context.Background()))
	saved := repo.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "r1", saved[0].RequestID)
}

func TestRepositoryRecorder_CloseDrainsQueue(t *testing.T) {
	repo := &fakeRoutingRepo{}
	rec := NewRepositoryRecorder(repo, logrus.New())
	for _, id := range []string{"a", "b", "c"} {
		rec.Record(models.RoutingRecord{RequestID: id, QueryText: "q"})
	}

	require.NoError(t, rec.Close(context.Background()))
	saved := repo.saved()
	require.Len(t, saved, 3)
	assert.Equal(t, "c", saved[2].RequestID)

	// records after Close are ignored, and Close is idempotent
	rec.Record(models.RoutingRecord{RequestID: "late", QueryText: "q"})
	require.NoError(t, rec.Close(context.Background()))
	assert.Len(t, repo.saved(), 3)
}

func TestRepositoryRecorder_BoundsSlowInserts(t *testing.T) {
	repo := &fakeRoutingRepo{block: true}
	rec := NewRepositoryRecorder(repo, logrus.New())
	rec.timeout = 20 * time.Millisecond

	rec.Record(models.RoutingRecord{RequestID: "slow", QueryText: "q"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, rec.Close(ctx))

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.ctxErrs, 1)
	assert.ErrorIs(t, repo.ctxErrs[0], context.DeadlineExceeded)
}
