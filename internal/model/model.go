package model

import (
	"context"
	"time"
)

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

// Difficulty represents the requested question difficulty.
type Difficulty string

const (
	DifficultyRandom Difficulty = "random"
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every difficulty in display order.
var Difficulties = []Difficulty{DifficultyRandom, DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyRandom, DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// GenerationRequest describes one question generation call. It is built per
// request from catalog choices and never persisted as such.
type GenerationRequest struct {
	Subject       string     `json:"subject" validate:"required"`
	Level         string     `json:"level" validate:"required"`
	Paper         string     `json:"paper,omitempty"`
	Sections      []string   `json:"sections,omitempty" validate:"omitempty,dive,required"`
	Difficulty    Difficulty `json:"difficulty,omitempty" validate:"omitempty,oneof=random easy medium hard"`
	Topic         string     `json:"topic,omitempty"`
	Subtopic      string     `json:"subtopic,omitempty" validate:"excluded_without=Topic"`
	QuestionCount int        `json:"question_count" validate:"gte=0,lte=10"`
}

// QuestionItem is a single generated question.
type QuestionItem struct {
	Question string `json:"question"`
}

// SolutionItem is the worked solution for the question at QuestionIndex (1-based).
type SolutionItem struct {
	QuestionIndex int    `json:"questionIndex"`
	Solution      string `json:"solution"`
}

// GenerationResult is the validated output of a generation call.
type GenerationResult struct {
	Questions []QuestionItem `json:"questions"`
	Solutions []SolutionItem `json:"solutions"`
}

// SolutionFor returns the solution referencing the 1-based question index.
func (r GenerationResult) SolutionFor(index int) (SolutionItem, bool) {
	for _, s := range r.Solutions {
		if s.QuestionIndex == index {
			return s, true
		}
	}
	return SolutionItem{}, false
}

// GeneratorConfig holds runtime generation parameters set via CLI flags.
type GeneratorConfig struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
	Temperature    float32
	BasePath       string // URL prefix for sub-path deployments (e.g. "/ga")
}
