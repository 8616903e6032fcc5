package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sentiq/screener/internal/resume"
	"github.com/sentiq/screener/internal/store"
)

const maxUploadMemory = 32 << 20

type handler struct {
	deps Deps
}

func (h *handler) ping(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (h *handler) uploadAndScreen(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	jobDescription := r.FormValue("job_description")
	files := r.MultipartForm.File["resumes"]

	if jobDescription == "" || len(files) == 0 {
		writeError(w, http.StatusBadRequest, "Missing job description or resumes")
		return
	}

	if len(files) > MaxBatchSize {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many resumes: %d (max %d)", len(files), MaxBatchSize))
		return
	}

	paths := make([]string, 0, len(files))
	for _, header := range files {
		data, err := readMultipartFile(header)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Failed to read file %s: %v", header.Filename, err))
			return
		}

		path, err := resume.SaveUpload(h.deps.UploadsDir, header.Filename, data)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Failed to save file %s: %v", header.Filename, err))
			return
		}
		paths = append(paths, path)
	}

	results, err := h.deps.Service.Screen(r.Context(), paths, jobDescription)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *handler) listCandidates(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	candidates, err := h.deps.Store.ListCandidates(r.Context(), limit)
	if err != nil {
		h.deps.Logger.Error("listing candidates failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing candidates failed")
		return
	}

	writeJSON(w, http.StatusOK, candidates)
}

type candidateDetail struct {
	ID             int64     `json:"id"`
	CandidateName  string    `json:"candidate_name,omitempty"`
	Score          int       `json:"score"`
	Pros           []string  `json:"pros"`
	Cons           []string  `json:"cons"`
	Rationale      string    `json:"rationale"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	DecisionReason string    `json:"decision_reason"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *handler) getCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candidate id")
		return
	}

	candidate, err := h.deps.Store.GetCandidate(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		h.deps.Logger.Error("getting candidate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "getting candidate failed")
		return
	}

	writeJSON(w, http.StatusOK, candidateDetail{
		ID:             candidate.ID,
		CandidateName:  candidate.CandidateName,
		Score:          candidate.Score,
		Pros:           candidate.Pros,
		Cons:           candidate.Cons,
		Rationale:      candidate.Rationale,
		Recommendation: candidate.Recommendation,
		Confidence:     candidate.Confidence,
		DecisionReason: candidate.DecisionReason,
		CreatedAt:      candidate.CreatedAt,
	})
}

func (h *handler) deleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.DeleteAll(r.Context()); err != nil {
		h.deps.Logger.Error("bulk clear failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "bulk clear failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type emailRequest struct {
	Tone   string `json:"tone"`
	Invite bool   `json:"invite"`
}

func (h *handler) draftEmail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candidate id")
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	candidate, err := h.deps.Store.GetCandidate(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		h.deps.Logger.Error("getting candidate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "getting candidate failed")
		return
	}

	name := candidate.CandidateName
	if name == "" {
		name = "Candidate"
	}

	body := h.deps.Agent.DraftEmail(r.Context(), name, candidate.DecisionReason, req.Tone, req.Invite)

	writeJSON(w, http.StatusOK, map[string]string{"email": body})
}

func (h *handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.deps.Store.ListCandidates(r.Context(), 10000)
	if err != nil {
		h.deps.Logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=candidates_export.csv")

	writer := csv.NewWriter(w)
	writer.Write([]string{"ID", "Name", "Score", "Recommendation", "Confidence", "Created At"})

	for _, c := range candidates {
		writer.Write([]string{
			strconv.FormatInt(c.ID, 10),
			c.CandidateName,
			strconv.Itoa(c.Score),
			c.Recommendation,
			strconv.FormatFloat(c.Confidence, 'f', 2, 64),
			c.CreatedAt.Format(time.RFC3339),
		})
	}

	writer.Flush()
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
