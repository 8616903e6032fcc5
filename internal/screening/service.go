package screening

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/resume"
	"github.com/sentiq/screener/internal/store"
)

// Screening result statuses.
const (
	StatusNew     = "new"
	StatusReused  = "reused"
	StatusInvalid = "invalid"
)

// ErrEmptyJobDescription rejects a batch before any provider call.
var ErrEmptyJobDescription = errors.New("job_description must not be empty")

// Result is the per-file outcome of a screening batch.
type Result struct {
	File           string `json:"file"`
	Status         string `json:"status"`
	CandidateID    int64  `json:"candidate_id,omitempty"`
	CandidateName  string `json:"candidate_name,omitempty"`
	Score          *int   `json:"score,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Service runs the screening pipeline over batches of resume files.
type Service struct {
	store  *store.Store
	agent  *Agent
	logger *zap.Logger
}

// NewService creates the screening service.
func NewService(st *store.Store, agent *Agent, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, agent: agent, logger: log}
}

// Screen processes each file independently: text extraction, fingerprint
// dedup, name extraction, evaluation, decision and persistence. A single
// file's failure is captured in its result and never aborts the batch.
// An empty job description rejects the whole batch up front.
func (s *Service) Screen(ctx context.Context, paths []string, jobDescription string) ([]Result, error) {
	jobDescription = strings.TrimSpace(jobDescription)
	if jobDescription == "" {
		return nil, ErrEmptyJobDescription
	}

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		results = append(results, s.screenOne(ctx, path, jobDescription))
	}

	return results, nil
}

func (s *Service) screenOne(ctx context.Context, path, jobDescription string) Result {
	file := filepath.Base(path)

	resumeText, err := resume.ParseFile(path)
	if err != nil {
		s.logger.Warn("skipping unreadable resume",
			zap.String("file", file),
			zap.Error(err),
		)
		return Result{File: file, Status: StatusInvalid, Error: err.Error()}
	}

	fingerprint := Fingerprint(resumeText, jobDescription)

	if existing, err := s.store.FindByFingerprint(ctx, fingerprint); err == nil {
		return s.reuse(ctx, file, existing)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Result{File: file, Status: StatusInvalid, Error: err.Error()}
	}

	name := s.agent.ExtractName(ctx, resumeText)

	evaluation := s.agent.AnalyzeFit(ctx, resumeText, jobDescription)
	decision := s.agent.RecommendAction(evaluation)

	candidate := &store.Candidate{
		Fingerprint:    fingerprint,
		CandidateName:  name.Name,
		ResumeText:     resumeText,
		JobDescription: jobDescription,
		Score:          evaluation.Score,
		Pros:           evaluation.Pros,
		Cons:           evaluation.Cons,
		Rationale:      evaluation.Rationale,
		Recommendation: decision.Recommendation,
		Confidence:     decision.Confidence,
		DecisionReason: decision.Reason,
		CreatedAt:      time.Now().UTC(),
	}

	id, err := s.store.InsertCandidate(ctx, candidate)
	if errors.Is(err, store.ErrDuplicateFingerprint) {
		// A concurrent request inserted the same pair first; fall back
		// to the record that won the race.
		existing, findErr := s.store.FindByFingerprint(ctx, fingerprint)
		if findErr != nil {
			return Result{File: file, Status: StatusInvalid, Error: findErr.Error()}
		}
		return s.reuse(ctx, file, existing)
	}
	if err != nil {
		s.logger.Error("persisting candidate failed",
			zap.String("file", file),
			zap.Error(err),
		)
		return Result{File: file, Status: StatusInvalid, Error: fmt.Sprintf("persist: %v", err)}
	}

	s.logger.Info("screened new candidate",
		zap.String("file", file),
		zap.Int64("candidate_id", id),
		zap.Int("score", evaluation.Score),
		zap.String("recommendation", decision.Recommendation),
	)

	score := evaluation.Score
	return Result{
		File:           file,
		Status:         StatusNew,
		CandidateID:    id,
		CandidateName:  name.Name,
		Score:          &score,
		Recommendation: decision.Recommendation,
	}
}

// reuse builds a result from an already stored candidate. The stored
// record is the source of truth; no provider call happens on this path.
func (s *Service) reuse(ctx context.Context, file string, id int64) Result {
	candidate, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return Result{File: file, Status: StatusInvalid, Error: err.Error()}
	}

	s.logger.Info("reusing existing evaluation",
		zap.String("file", file),
		zap.Int64("candidate_id", id),
	)

	score := candidate.Score
	return Result{
		File:           file,
		Status:         StatusReused,
		CandidateID:    id,
		CandidateName:  candidate.CandidateName,
		Score:          &score,
		Recommendation: candidate.Recommendation,
	}
}
