// Package generator turns catalog selections into validated question sets.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/examinaite/examinaite/internal/catalog"
	"github.com/examinaite/examinaite/internal/llm"
	"github.com/examinaite/examinaite/internal/llm/prompts"
	"github.com/examinaite/examinaite/internal/model"
)

// MaxQuestions is the largest question count a single request may ask for.
const MaxQuestions = 10

// Client produces a result matching shape for a prompt. *llm.Client satisfies it.
type Client interface {
	Generate(ctx context.Context, p prompts.Prompt, shape *llm.Shape) (*model.GenerationResult, error)
}

// InvalidRequestError reports a request that fails field validation.
type InvalidRequestError struct {
	Fields map[string]string // lower-cased field name -> problem
}

func (e *InvalidRequestError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid generation request: " + strings.Join(parts, "; ")
}

// Generation is a completed request together with its result.
type Generation struct {
	Request model.GenerationRequest // with defaults and the resolved paper filled in
	Result  *model.GenerationResult
}

// Service validates requests against the catalog and drives the client.
type Service struct {
	catalog  *catalog.Catalog
	prompts  *prompts.Registry
	client   Client
	validate *validator.Validate
}

// New creates a generation service.
func New(cat *catalog.Catalog, reg *prompts.Registry, client Client) *Service {
	return &Service{
		catalog:  cat,
		prompts:  reg,
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Prepare validates req, fills defaults and resolves it against the catalog,
// returning the normalized request and the prompt that would be sent.
func (s *Service) Prepare(req model.GenerationRequest) (model.GenerationRequest, prompts.Prompt, error) {
	req = normalize(req)
	if err := s.validate.Struct(req); err != nil {
		return req, prompts.Prompt{}, invalid(err)
	}

	subject, err := s.catalog.Get(req.Subject)
	if err != nil {
		return req, prompts.Prompt{}, err
	}
	if len(subject.DifficultyLevels) > 0 && !slices.Contains(subject.DifficultyLevels, req.Difficulty) {
		return req, prompts.Prompt{}, &InvalidRequestError{Fields: map[string]string{
			"difficulty": fmt.Sprintf("%s is not offered for %s", req.Difficulty, req.Subject),
		}}
	}

	pc := prompts.Context{SubjectName: subject.DisplayName}

	var paper catalog.Paper
	switch {
	case req.Paper != "":
		paper, err = s.catalog.Paper(req.Subject, req.Level, req.Paper)
	case req.Topic != "":
		var t catalog.Topic
		paper, t, err = s.catalog.FindTopic(req.Subject, req.Level, req.Topic)
		pc.Topic = &t
		req.Paper = paper.Name
	default:
		_, err = s.catalog.Level(req.Subject, req.Level)
	}
	if err != nil {
		return req, prompts.Prompt{}, err
	}
	pc.Sections = paper.Sections

	if req.Topic != "" && pc.Topic == nil {
		t, ok := paper.Topic(req.Topic)
		if !ok {
			return req, prompts.Prompt{}, &catalog.NotFoundError{Kind: "topic", Path: []string{req.Subject, req.Level, req.Paper, req.Topic}}
		}
		pc.Topic = &t
	}
	if req.Subtopic != "" {
		st, ok := pc.Topic.Subtopic(req.Subtopic)
		if !ok {
			return req, prompts.Prompt{}, &catalog.NotFoundError{Kind: "subtopic", Path: []string{req.Subject, req.Level, req.Paper, req.Topic, req.Subtopic}}
		}
		pc.Subtopic = &st
	}

	p, err := s.prompts.Build(req, pc)
	if err != nil {
		return req, prompts.Prompt{}, fmt.Errorf("build prompt: %w", err)
	}
	return req, p, nil
}

// Generate runs one generation request end to end.
func (s *Service) Generate(ctx context.Context, req model.GenerationRequest) (*Generation, error) {
	req, p, err := s.Prepare(req)
	if err != nil {
		return nil, err
	}

	slog.Info("generating questions",
		"subject", req.Subject, "level", req.Level, "paper", req.Paper,
		"topic", req.Topic, "subtopic", req.Subtopic,
		"difficulty", req.Difficulty, "count", req.QuestionCount)

	res, err := s.client.Generate(ctx, p, llm.GenerationShape(req.QuestionCount))
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", model.Title(req), err)
	}
	return &Generation{Request: req, Result: res}, nil
}

func normalize(req model.GenerationRequest) model.GenerationRequest {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Level = strings.TrimSpace(req.Level)
	req.Paper = strings.TrimSpace(req.Paper)
	req.Topic = strings.TrimSpace(req.Topic)
	req.Subtopic = strings.TrimSpace(req.Subtopic)
	if req.Difficulty == "" {
		req.Difficulty = model.DifficultyRandom
	}
	if req.QuestionCount == 0 {
		req.QuestionCount = 1
	}
	return req
}

func invalid(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate request: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			fields[field] = "is required"
		case "oneof":
			fields[field] = "must be one of " + e.Param()
		case "gte":
			fields[field] = "must be at least " + e.Param()
		case "lte":
			fields[field] = "must be at most " + e.Param()
		case "excluded_without":
			fields[field] = "requires " + strings.ToLower(e.Param())
		default:
			fields[field] = "is invalid"
		}
	}
	return &InvalidRequestError{Fields: fields}
}
