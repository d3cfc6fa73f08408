package model

import (
	"fmt"
	"strconv"
	"time"
)

// GenerationRecord is the persisted form of a generation result.
type GenerationRecord struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Subject    string           `json:"subject"`
	Level      string           `json:"level"`
	Difficulty Difficulty       `json:"difficulty"`
	Topic      string           `json:"topic"`
	Questions  []StoredQuestion `json:"questions"`
	CreatedAt  time.Time        `json:"created_at"`
}

// StoredQuestion pairs a question with its solution.
type StoredQuestion struct {
	Question string            `json:"question"`
	Solution string            `json:"solution"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GenerationExport is the top-level JSON structure for exporting stored generations.
type GenerationExport struct {
	ExportedAt  time.Time          `json:"exported_at"`
	Service     ServiceInfo        `json:"service"`
	Count       int                `json:"count"`
	Generations []GenerationRecord `json:"generations"`
}

// NewRecord builds the persisted form of res. Each question is paired with the
// solution whose questionIndex points at it.
func NewRecord(id string, req GenerationRequest, res GenerationResult) (GenerationRecord, error) {
	if len(res.Questions) != len(res.Solutions) {
		return GenerationRecord{}, fmt.Errorf("%d questions but %d solutions", len(res.Questions), len(res.Solutions))
	}

	rec := GenerationRecord{
		ID:         id,
		Title:      Title(req),
		Subject:    req.Subject,
		Level:      req.Level,
		Difficulty: req.Difficulty,
		Topic:      req.Topic,
		Questions:  make([]StoredQuestion, 0, len(res.Questions)),
	}
	for i, q := range res.Questions {
		sol, ok := res.SolutionFor(i + 1)
		if !ok {
			return GenerationRecord{}, fmt.Errorf("no solution for question %d", i+1)
		}
		meta := map[string]string{"index": strconv.Itoa(i + 1)}
		if req.Paper != "" {
			meta["paper"] = req.Paper
		}
		if req.Subtopic != "" {
			meta["subtopic"] = req.Subtopic
		}
		rec.Questions = append(rec.Questions, StoredQuestion{
			Question: q.Question,
			Solution: sol.Solution,
			Metadata: meta,
		})
	}
	return rec, nil
}

// Result converts the record back into a generation result with 1..N indices.
func (r GenerationRecord) Result() GenerationResult {
	res := GenerationResult{
		Questions: make([]QuestionItem, 0, len(r.Questions)),
		Solutions: make([]SolutionItem, 0, len(r.Questions)),
	}
	for i, q := range r.Questions {
		res.Questions = append(res.Questions, QuestionItem{Question: q.Question})
		res.Solutions = append(res.Solutions, SolutionItem{QuestionIndex: i + 1, Solution: q.Solution})
	}
	return res
}

// Title derives a human-readable title for a request.
func Title(req GenerationRequest) string {
	title := req.Subject + " " + req.Level
	if req.Topic != "" {
		title += ": " + req.Topic
		if req.Subtopic != "" {
			title += " / " + req.Subtopic
		}
	}
	return title
}

// ServiceInfo describes the configuration that produced stored generations.
type ServiceInfo struct {
	Model           string `json:"model"`
	CatalogSubjects int    `json:"catalog_subjects"`
	StartedAt       string `json:"started_at"`
}
