package screening

import (
	"context"
	"encoding/json"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/gateway"
)

//go:embed name_prompt.md
var namePromptTemplate string

const (
	// nameConfidenceThreshold is the minimum model confidence for an
	// extracted name to be accepted.
	nameConfidenceThreshold = 0.85

	// maxNameTokens rejects sentence-like or multi-line output
	// masquerading as a name.
	maxNameTokens = 4

	// namePromptResumeLimit bounds how much resume text goes into the
	// extraction prompt.
	namePromptResumeLimit = 3000
)

// NameResult is the outcome of candidate name extraction. An empty Name
// means no name was accepted; the pipeline continues either way.
type NameResult struct {
	Name       string
	Confidence float64
}

type nameReply struct {
	Name       *string `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ExtractName asks the gateway for the candidate's name. Extraction is
// advisory: any parse failure or sanity violation yields an empty name,
// never an error.
func (a *Agent) ExtractName(ctx context.Context, resumeText string) NameResult {
	excerpt := resumeText
	if runes := []rune(excerpt); len(runes) > namePromptResumeLimit {
		excerpt = string(runes[:namePromptResumeLimit])
	}

	prompt := strings.ReplaceAll(namePromptTemplate, "{{RESUME}}", excerpt)

	raw, err := a.gateway.Dispatch(ctx, gateway.Request{
		Prompt:   prompt,
		Category: gateway.CategoryName,
		Prefer:   "gemini",
		JSONOnly: true,
	})
	if err != nil {
		a.logger.Warn("name extraction dispatch failed", zap.Error(err))
		return NameResult{}
	}

	var reply nameReply
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &reply); err != nil {
		a.logger.Debug("name extraction reply not parseable", zap.Error(err))
		return NameResult{}
	}

	if reply.Name == nil {
		return NameResult{Confidence: reply.Confidence}
	}

	name := strings.TrimSpace(*reply.Name)
	if name == "" || reply.Confidence < nameConfidenceThreshold {
		return NameResult{Confidence: reply.Confidence}
	}

	if len(strings.Fields(name)) > maxNameTokens {
		return NameResult{}
	}

	return NameResult{Name: name, Confidence: reply.Confidence}
}
