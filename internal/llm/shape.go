package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/examinaite/examinaite/internal/model"
)

// generationSchema is the JSON schema every generation response must satisfy.
const generationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["questions", "solutions"],
  "properties": {
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["question"],
        "properties": {
          "question": {"type": "string", "minLength": 1}
        }
      }
    },
    "solutions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["questionIndex", "solution"],
        "properties": {
          "questionIndex": {"type": "integer", "minimum": 1},
          "solution": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(generationSchema))
	})
	return schema, schemaErr
}

// Shape describes the expected output of a generation call.
type Shape struct {
	// QuestionCount is the exact number of questions required; 0 accepts any
	// non-empty set.
	QuestionCount int
}

// GenerationShape returns the shape for a request of count questions.
func GenerationShape(count int) *Shape {
	return &Shape{QuestionCount: count}
}

// Decode parses raw as JSON and checks it against the shape. It returns a
// *ParseError for invalid JSON and a *ShapeError for anything structurally wrong.
func (s *Shape) Decode(raw string) (*model.GenerationResult, error) {
	body := stripCodeFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile output schema: %w", err)
	}
	res, err := sch.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if !res.Valid() {
		problems := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			problems = append(problems, e.String())
		}
		return nil, &ShapeError{Problems: problems}
	}

	var out model.GenerationResult
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if problems := s.check(out); len(problems) > 0 {
		return nil, &ShapeError{Problems: problems}
	}
	return &out, nil
}

func (s *Shape) check(r model.GenerationResult) []string {
	var problems []string
	n := len(r.Questions)
	if n == 0 {
		problems = append(problems, "no questions")
	}
	if s.QuestionCount > 0 && n != s.QuestionCount {
		problems = append(problems, fmt.Sprintf("got %d questions, want %d", n, s.QuestionCount))
	}
	if len(r.Solutions) != n {
		problems = append(problems, fmt.Sprintf("got %d solutions for %d questions", len(r.Solutions), n))
	}

	seen := make(map[int]bool, len(r.Solutions))
	for _, sol := range r.Solutions {
		switch {
		case sol.QuestionIndex < 1 || sol.QuestionIndex > n:
			problems = append(problems, fmt.Sprintf("questionIndex %d out of range 1-%d", sol.QuestionIndex, n))
		case seen[sol.QuestionIndex]:
			problems = append(problems, fmt.Sprintf("questionIndex %d repeated", sol.QuestionIndex))
		}
		seen[sol.QuestionIndex] = true
	}
	return problems
}

// stripCodeFences removes a surrounding markdown code block, which some
// models add despite JSON mode.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
