package screening

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentiq/screener/internal/gateway"
	"github.com/sentiq/screener/internal/llm"
	"github.com/sentiq/screener/internal/store"
)

// evalGateway replays per-category responses and counts evaluation calls.
type evalGateway struct {
	evalCalls int
}

func (f *evalGateway) Dispatch(_ context.Context, req gateway.Request) (string, error) {
	switch req.Category {
	case gateway.CategoryEvaluation:
		f.evalCalls++
		return `{"score": 81, "pros": ["a","b","c"], "cons": ["d","e","f"], "rationale": "Good fit."}`, nil
	case gateway.CategoryName:
		return `{"name": "Jane Doe", "confidence": 0.95}`, nil
	default:
		return "ok", nil
	}
}

func newTestService(t *testing.T, gw dispatcher) (*Service, *store.Store) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "candidates.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return NewService(st, NewAgent(gw, nil), nil), st
}

func writeResume(t *testing.T, dir, name, text string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestScreenRejectsEmptyJobDescription(t *testing.T) {
	svc, _ := newTestService(t, &evalGateway{})

	_, err := svc.Screen(context.Background(), nil, "   ")
	assert.ErrorIs(t, err, ErrEmptyJobDescription)
}

func TestScreenNewThenReused(t *testing.T) {
	ctx := context.Background()
	gw := &evalGateway{}
	svc, _ := newTestService(t, gw)

	dir := t.TempDir()
	path := writeResume(t, dir, "jane.txt", "Jane Doe, Go developer, five years of experience.")

	first, err := svc.Screen(ctx, []string{path}, "Backend engineer, Go.")
	require.NoError(t, err)
	require.Len(t, first, 1)

	assert.Equal(t, StatusNew, first[0].Status)
	assert.Equal(t, "Jane Doe", first[0].CandidateName)
	require.NotNil(t, first[0].Score)
	assert.Equal(t, 81, *first[0].Score)
	assert.Equal(t, "interview", first[0].Recommendation)

	second, err := svc.Screen(ctx, []string{path}, "Backend engineer, Go.")
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, StatusReused, second[0].Status)
	assert.Equal(t, first[0].CandidateID, second[0].CandidateID)
	assert.Equal(t, *first[0].Score, *second[0].Score)
	assert.Equal(t, first[0].Recommendation, second[0].Recommendation)

	assert.Equal(t, 1, gw.evalCalls, "exactly one paid evaluation for the same pair")
}

func TestScreenDifferentJobDescriptionIsNew(t *testing.T) {
	ctx := context.Background()
	gw := &evalGateway{}
	svc, _ := newTestService(t, gw)

	path := writeResume(t, t.TempDir(), "jane.txt", "Jane Doe, Go developer.")

	_, err := svc.Screen(ctx, []string{path}, "Backend engineer.")
	require.NoError(t, err)
	results, err := svc.Screen(ctx, []string{path}, "Frontend engineer.")
	require.NoError(t, err)

	assert.Equal(t, StatusNew, results[0].Status)
	assert.Equal(t, 2, gw.evalCalls)
}

func TestScreenBadFileDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &evalGateway{})

	dir := t.TempDir()
	good := writeResume(t, dir, "good.txt", "A fine resume.")
	missing := filepath.Join(dir, "missing.txt")

	results, err := svc.Screen(ctx, []string{missing, good}, "Backend engineer.")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, StatusInvalid, results[0].Status)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, StatusNew, results[1].Status)
}

// downProvider always fails, simulating a provider outage.
type downProvider struct{ name string }

func (p *downProvider) Name() string  { return p.name }
func (p *downProvider) Model() string { return p.name + "-model" }
func (p *downProvider) Invoke(context.Context, string, llm.Options) (string, error) {
	return "", errors.New("provider unavailable")
}

func TestScreenAllProvidersDown(t *testing.T) {
	ctx := context.Background()

	router := gateway.New([]llm.Client{
		&downProvider{name: "gemini"},
		&downProvider{name: "groq"},
	})

	svc, st := newTestService(t, router)
	path := writeResume(t, t.TempDir(), "jane.txt", "Jane Doe, Go developer.")

	results, err := svc.Screen(ctx, []string{path}, "Backend engineer.")
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.Equal(t, StatusNew, results[0].Status, "total outage must still persist a record")

	candidate, err := st.GetCandidate(ctx, results[0].CandidateID)
	require.NoError(t, err)
	assert.Equal(t, gateway.OverloadMessage, candidate.Rationale)
	assert.Equal(t, 0, candidate.Score)
	assert.Equal(t, "reject", candidate.Recommendation)
}

func TestScreenConcurrentDuplicateResolvesToReuse(t *testing.T) {
	ctx := context.Background()
	gw := &evalGateway{}
	svc, st := newTestService(t, gw)

	resumeText := "Jane Doe, Go developer."
	jd := "Backend engineer."

	// Simulate a concurrent request winning the insert race after our
	// fingerprint lookup would have missed.
	_, err := st.InsertCandidate(ctx, &store.Candidate{
		Fingerprint:    Fingerprint(resumeText, jd),
		ResumeText:     resumeText,
		JobDescription: jd,
		Score:          77,
		Pros:           []string{"a", "b", "c"},
		Cons:           []string{"d", "e", "f"},
		Recommendation: "interview",
		Confidence:     0.84,
	})
	require.NoError(t, err)

	path := writeResume(t, t.TempDir(), "jane.txt", resumeText)
	results, err := svc.Screen(ctx, []string{path}, jd)
	require.NoError(t, err)

	assert.Equal(t, StatusReused, results[0].Status)
	require.NotNil(t, results[0].Score)
	assert.Equal(t, 77, *results[0].Score)
	assert.Zero(t, gw.evalCalls)
}
