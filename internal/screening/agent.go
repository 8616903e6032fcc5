// Package screening drives the evaluation pipeline: fingerprint dedup,
// LLM-assisted name extraction and fit evaluation, a pure decision step,
// and persistence of the outcome.
package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/gateway"
	"github.com/sentiq/screener/internal/logger"
)

//go:embed evaluate_prompt.md
var evaluatePromptTemplate string

// jsonSystemPrefix is prepended to structured extraction prompts.
const jsonSystemPrefix = "SYSTEM: You must respond with STRICTLY VALID JSON. " +
	"No markdown, no explanations, no extra text.\n\n"

// fallbackRationale replaces the rationale when the model output could
// not be parsed at all.
const fallbackRationale = "Evaluation could not be generated reliably."

// Evaluation is the structured fit assessment of one candidate.
type Evaluation struct {
	Score     int      `json:"score"`
	Pros      []string `json:"pros"`
	Cons      []string `json:"cons"`
	Rationale string   `json:"rationale"`
}

// Decision is the recommendation derived from an Evaluation.
type Decision struct {
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
}

// dispatcher is the slice of the gateway the agent depends on.
type dispatcher interface {
	Dispatch(ctx context.Context, req gateway.Request) (string, error)
}

// Agent is the recruiter domain agent. All provider interaction goes
// through the gateway; every method degrades to a safe value instead of
// failing.
type Agent struct {
	gateway   dispatcher
	logger    *zap.Logger
	maxLogLen int
}

const defaultMaxLogLength = 200

// NewAgent creates a recruiter agent on top of the given gateway.
func NewAgent(gw dispatcher, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Agent{gateway: gw, logger: log, maxLogLen: defaultMaxLogLength}
}

// AnalyzeFit evaluates the candidate against the job description and
// always returns a usable evaluation: a strict JSON parse, then a
// brace-span recovery, then the fixed zero-score fallback.
func (a *Agent) AnalyzeFit(ctx context.Context, resumeText, jobDescription string) *Evaluation {
	prompt := strings.ReplaceAll(evaluatePromptTemplate, "{{RESUME}}", resumeText)
	prompt = strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION}}", jobDescription)

	a.logger.Debug("evaluation request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.gateway.Dispatch(ctx, gateway.Request{
		Prompt:   jsonSystemPrefix + prompt,
		Category: gateway.CategoryEvaluation,
		Prefer:   "gemini",
		JSONOnly: true,
	})
	if err != nil {
		a.logger.Error("evaluation dispatch failed", zap.Error(err))
		return fallbackEvaluation()
	}

	a.logger.Debug("evaluation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)

	if raw == gateway.OverloadMessage {
		// Total provider outage: keep the advisory as the stored
		// rationale so the outcome explains itself.
		return &Evaluation{Score: 0, Pros: []string{}, Cons: []string{}, Rationale: raw}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err == nil {
		if eval, err := decodeEvaluation(payload); err == nil {
			return eval
		}
	}

	if span, ok := extractJSONObject(raw); ok {
		if err := json.Unmarshal([]byte(span), &payload); err == nil {
			if eval, err := decodeEvaluation(payload); err == nil {
				return eval
			}
		}
	}

	a.logger.Warn("invalid model output for evaluation",
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)
	return fallbackEvaluation()
}

// RecommendAction maps an evaluation to a hiring recommendation. It is a
// pure function: no model call, and it tolerates a missing evaluation.
func (a *Agent) RecommendAction(eval *Evaluation) Decision {
	if eval == nil {
		return Decision{
			Recommendation: "hold",
			Confidence:     0.5,
			Reason:         "Evaluation data was incomplete or unavailable.",
		}
	}

	score := eval.Score

	switch {
	case score >= 75:
		return Decision{
			Recommendation: "interview",
			Confidence:     round2(math.Min(0.95, 0.8+float64(score-75)/50)),
			Reason:         "Candidate meets core requirements with strong overall alignment.",
		}
	case score >= 60:
		return Decision{
			Recommendation: "hold",
			Confidence:     0.6,
			Reason:         "Candidate shows potential but does not clearly meet all requirements.",
		}
	default:
		return Decision{
			Recommendation: "reject",
			Confidence:     round2(math.Min(0.9, 0.6+float64(60-score)/60)),
			Reason:         "Candidate does not sufficiently meet the role requirements.",
		}
	}
}

// DraftEmail writes a recruiter-style email for the candidate. Short
// free-text task, so the gateway is asked to prefer the secondary
// provider. A fixed letter is returned if the dispatch fails; the method
// never errors.
func (a *Agent) DraftEmail(ctx context.Context, candidateName, reason, tone string, invite bool) string {
	if tone = strings.TrimSpace(tone); tone == "" {
		tone = "professional"
	}

	intent := "inform the candidate about the application outcome"
	if invite {
		intent = "invite the candidate for an interview"
	}

	prompt := fmt.Sprintf(`Write a %s email to %s to %s.

Context:
%s

Rules:
- Keep it under 150 words
- Be polite and encouraging
- Do NOT mention internal scores or hiring criteria
`, tone, candidateName, intent, reason)

	response, err := a.gateway.Dispatch(ctx, gateway.Request{
		Prompt:   prompt,
		Category: gateway.CategoryEmail,
		Prefer:   "groq",
	})
	if err != nil {
		a.logger.Warn("email drafting failed, using fallback letter", zap.Error(err))
		return fallbackEmail(candidateName, reason, invite)
	}

	return strings.TrimSpace(response)
}

// decodeEvaluation maps a decoded JSON object onto an Evaluation.
// Models sometimes emit the score as a float or a quoted number, so the
// decode is weakly typed.
func decodeEvaluation(payload map[string]any) (*Evaluation, error) {
	var eval Evaluation
	cfg := &mapstructure.DecoderConfig{
		Result:           &eval,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, err
	}
	return &eval, nil
}

func fallbackEvaluation() *Evaluation {
	return &Evaluation{
		Score:     0,
		Pros:      []string{},
		Cons:      []string{},
		Rationale: fallbackRationale,
	}
}

func fallbackEmail(candidateName, reason string, invite bool) string {
	if invite {
		return fmt.Sprintf("Subject: Interview Invitation\n\n"+
			"Dear %s,\n\n"+
			"Thank you for your application. We would like to invite you to the next stage of the interview process.\n\n"+
			"%s\n\n"+
			"Best regards,", candidateName, reason)
	}
	return fmt.Sprintf("Subject: Application Update\n\n"+
		"Dear %s,\n\n"+
		"Thank you for your interest. After careful consideration, we will not be proceeding further at this time.\n\n"+
		"%s\n\n"+
		"Best wishes,", candidateName, reason)
}

// stripCodeFence removes a surrounding markdown code fence, which some
// models wrap around JSON despite instructions.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}

// extractJSONObject returns the first brace-delimited span of the input,
// from the first opening brace to the last closing one.
func extractJSONObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
