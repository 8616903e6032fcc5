package screening

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentiq/screener/internal/gateway"
)

// fakeGateway records dispatched requests and replays canned responses.
type fakeGateway struct {
	response string
	err      error
	requests []gateway.Request
}

func (f *fakeGateway) Dispatch(_ context.Context, req gateway.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func TestAnalyzeFitStrictJSON(t *testing.T) {
	gw := &fakeGateway{response: `{"score": 88, "pros": ["a","b","c"], "cons": ["d","e","f"], "rationale": "Solid fit."}`}
	agent := NewAgent(gw, nil)

	eval := agent.AnalyzeFit(context.Background(), "resume", "job")

	assert.Equal(t, 88, eval.Score)
	assert.Equal(t, []string{"a", "b", "c"}, eval.Pros)
	assert.Equal(t, "Solid fit.", eval.Rationale)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Equal(t, gateway.CategoryEvaluation, req.Category)
	assert.Equal(t, "gemini", req.Prefer)
	assert.True(t, req.JSONOnly)
	assert.Contains(t, req.Prompt, "STRICTLY VALID JSON")
	assert.Contains(t, req.Prompt, "resume")
	assert.Contains(t, req.Prompt, "job")
}

func TestAnalyzeFitCodeFencedJSON(t *testing.T) {
	gw := &fakeGateway{response: "```json\n{\"score\": 70, \"pros\": [], \"cons\": [], \"rationale\": \"ok\"}\n```"}
	agent := NewAgent(gw, nil)

	eval := agent.AnalyzeFit(context.Background(), "r", "j")
	assert.Equal(t, 70, eval.Score)
}

func TestAnalyzeFitBraceRecovery(t *testing.T) {
	gw := &fakeGateway{response: `Sure! Here is the evaluation: {"score": 42, "pros": [], "cons": [], "rationale": "meh"} Hope this helps.`}
	agent := NewAgent(gw, nil)

	eval := agent.AnalyzeFit(context.Background(), "r", "j")
	assert.Equal(t, 42, eval.Score)
	assert.Equal(t, "meh", eval.Rationale)
}

func TestAnalyzeFitWeaklyTypedScore(t *testing.T) {
	gw := &fakeGateway{response: `{"score": "82", "pros": ["a"], "cons": [], "rationale": "quoted number"}`}
	agent := NewAgent(gw, nil)

	eval := agent.AnalyzeFit(context.Background(), "r", "j")
	assert.Equal(t, 82, eval.Score)

	gw.response = `{"score": 67.0, "pros": [], "cons": [], "rationale": "float"}`
	eval = agent.AnalyzeFit(context.Background(), "r", "j")
	assert.Equal(t, 67, eval.Score)
}

func TestAnalyzeFitFallbackOnGarbage(t *testing.T) {
	gw := &fakeGateway{response: "I am sorry, I cannot evaluate this resume."}
	agent := NewAgent(gw, nil)

	eval := agent.AnalyzeFit(context.Background(), "r", "j")

	assert.Equal(t, 0, eval.Score)
	assert.Empty(t, eval.Pros)
	assert.Empty(t, eval.Cons)
	assert.Equal(t, fallbackRationale, eval.Rationale)
}

func TestAnalyzeFitFallbackOnDispatchError(t *testing.T) {
	gw := &fakeGateway{err: errors.New("boom")}
	agent := NewAgent(gw, nil)

	eval := agent.AnalyzeFit(context.Background(), "r", "j")
	assert.Equal(t, fallbackRationale, eval.Rationale)
}

func TestRecommendActionBoundaries(t *testing.T) {
	agent := NewAgent(&fakeGateway{}, nil)

	tests := []struct {
		score          int
		recommendation string
		confidence     float64
	}{
		{score: 100, recommendation: "interview", confidence: 0.95},
		{score: 80, recommendation: "interview", confidence: 0.9},
		{score: 75, recommendation: "interview", confidence: 0.8},
		{score: 74, recommendation: "hold", confidence: 0.6},
		{score: 60, recommendation: "hold", confidence: 0.6},
		{score: 59, recommendation: "reject", confidence: 0.62},
		{score: 0, recommendation: "reject", confidence: 0.9},
	}

	for _, tt := range tests {
		decision := agent.RecommendAction(&Evaluation{Score: tt.score})
		assert.Equalf(t, tt.recommendation, decision.Recommendation, "score %d", tt.score)
		assert.InDeltaf(t, tt.confidence, decision.Confidence, 1e-9, "score %d", tt.score)
	}
}

func TestRecommendActionNilEvaluation(t *testing.T) {
	agent := NewAgent(&fakeGateway{}, nil)

	decision := agent.RecommendAction(nil)

	assert.Equal(t, "hold", decision.Recommendation)
	assert.InDelta(t, 0.5, decision.Confidence, 1e-9)
	assert.Contains(t, decision.Reason, "incomplete")
}

func TestDraftEmail(t *testing.T) {
	gw := &fakeGateway{response: "  Subject: Interview Invitation\n\nDear Jane...  "}
	agent := NewAgent(gw, nil)

	body := agent.DraftEmail(context.Background(), "Jane Doe", "Strong fit.", "friendly", true)
	assert.Equal(t, "Subject: Interview Invitation\n\nDear Jane...", body)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Equal(t, gateway.CategoryEmail, req.Category)
	assert.Equal(t, "groq", req.Prefer)
	assert.False(t, req.JSONOnly)
	assert.Contains(t, req.Prompt, "friendly")
	assert.Contains(t, req.Prompt, "Jane Doe")
	assert.Contains(t, req.Prompt, "invite the candidate for an interview")
}

func TestDraftEmailFallbackLetters(t *testing.T) {
	gw := &fakeGateway{err: errors.New("boom")}
	agent := NewAgent(gw, nil)

	invite := agent.DraftEmail(context.Background(), "Jane", "See you soon.", "", true)
	assert.Contains(t, invite, "Interview Invitation")
	assert.Contains(t, invite, "Jane")

	outcome := agent.DraftEmail(context.Background(), "Jane", "Thanks again.", "", false)
	assert.Contains(t, outcome, "Application Update")
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, Fingerprint("a", "b"), Fingerprint("a", "b"))
	assert.NotEqual(t, Fingerprint("a", "b"), Fingerprint("a", "c"))
	assert.Len(t, Fingerprint("a", "b"), 64)
}
