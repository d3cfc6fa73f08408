package prompts

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/examinaite/examinaite/internal/catalog"
	"github.com/examinaite/examinaite/internal/model"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Default()
	if err != nil {
		t.Fatalf("Default(): %v", err)
	}
	return r
}

func TestLatexPolicyPerSubject(t *testing.T) {
	r := defaultRegistry(t)

	tests := []struct {
		subject string
		want    LatexPolicy
	}{
		{"mathematics", LatexFull},
		{"applied-mathematics", LatexFull},
		{"physics", LatexMixed},
		{"english", LatexNone},
		{"biology", LatexNone}, // falls back to the default
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := r.Template(tt.subject).LatexPolicy; got != tt.want {
				t.Errorf("LatexPolicy = %q, want %q", got, tt.want)
			}

			p, err := r.Build(model.GenerationRequest{Subject: tt.subject, Level: "Higher Level", QuestionCount: 2}, Context{})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			switch tt.want {
			case LatexFull:
				if !strings.Contains(p.System, LatexFullInstructions) {
					t.Error("system prompt should contain full LaTeX instructions verbatim")
				}
			case LatexMixed:
				if !strings.Contains(p.System, LatexMixedInstructions) {
					t.Error("system prompt should contain mixed LaTeX instructions verbatim")
				}
			case LatexNone:
				if strings.Contains(p.System, "LATEX:") {
					t.Error("system prompt should have no LaTeX section")
				}
			}
		})
	}
}

func TestLatexInstructionsDoubleEscape(t *testing.T) {
	if !strings.Contains(LatexFullInstructions, `\\frac{1}{2}`) {
		t.Error("full instructions should show a double-escaped backslash")
	}
	if !strings.Contains(LatexMixedInstructions, `\\frac{a}{b}`) {
		t.Error("mixed instructions should show a double-escaped backslash")
	}
}

func TestTopicConstraint(t *testing.T) {
	r := defaultRegistry(t)

	t.Run("topic and subtopic", func(t *testing.T) {
		p, err := r.Build(model.GenerationRequest{
			Subject:  "mathematics",
			Level:    "Higher Level",
			Topic:    "Calculus",
			Subtopic: "Integration",
		}, Context{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		want := `ONLY generate questions on topic "Calculus" (subtopic "Integration"); do not generate questions on unrelated topics.`
		if !strings.Contains(p.System, want) {
			t.Errorf("system prompt missing constraint:\n%s", p.System)
		}
		if !strings.Contains(p.User, want) {
			t.Errorf("user prompt missing constraint:\n%s", p.User)
		}
	})

	t.Run("topic only", func(t *testing.T) {
		p, err := r.Build(model.GenerationRequest{Subject: "english", Level: "Ordinary Level", Topic: "Composition"}, Context{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if !strings.Contains(p.System, `ONLY generate questions on topic "Composition"; do not generate questions on unrelated topics.`) {
			t.Errorf("system prompt missing constraint:\n%s", p.System)
		}
	})

	t.Run("no topic", func(t *testing.T) {
		p, err := r.Build(model.GenerationRequest{Subject: "physics", Level: "Higher Level"}, Context{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		if strings.Contains(p.System, "ONLY generate questions") || strings.Contains(p.User, "ONLY generate questions") {
			t.Error("no constraint expected without a topic")
		}
	})
}

func TestBuildUserPrompt(t *testing.T) {
	r := defaultRegistry(t)

	sub := catalog.Subtopic{
		Name:        "Integration",
		Description: "Area between curves",
		Keywords:    []string{"definite integral", "area"},
		Examples:    []string{"Find the area enclosed by y = x^2 and y = x."},
	}
	p, err := r.Build(model.GenerationRequest{
		Subject:       "biology",
		Level:         "Higher Level",
		Paper:         "Paper 1",
		Difficulty:    model.DifficultyHard,
		Topic:         "Calculus",
		Subtopic:      "Integration",
		QuestionCount: 3,
	}, Context{
		SubjectName: "Biology",
		Sections:    []string{"Section A", "Section B"},
		Subtopic:    &sub,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, want := range []string{
		"Generate 3 hard Leaving Certificate Higher Level Biology exam questions in the style of Paper 1.",
		"Section A, Section B",
		"Subtopic: Integration - Area between curves.",
		"Key terms to draw on: definite integral, area.",
		"- Find the area enclosed by y = x^2 and y = x.",
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("user prompt missing %q:\n%s", want, p.User)
		}
	}
	if !strings.Contains(p.System, "Return exactly 3 questions and exactly 3 solutions.") {
		t.Errorf("system prompt should state the count:\n%s", p.System)
	}
}

func TestBuildRandomDifficulty(t *testing.T) {
	r := defaultRegistry(t)
	p, err := r.Build(model.GenerationRequest{Subject: "chemistry", Level: "Ordinary Level", Difficulty: model.DifficultyRandom}, Context{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(p.User, "Generate 1 mixed-difficulty") {
		t.Errorf("unexpected user prompt:\n%s", p.User)
	}
}

func TestOverrideInheritsDefault(t *testing.T) {
	r, err := NewRegistry(
		SubjectPromptTemplate{BaseInstructions: "base", UserPromptTemplate: "Write {{.QuestionCount}}", ExampleQuestion: "EQ"},
		SubjectPromptTemplate{Subject: "physics", LatexPolicy: LatexMixed},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	got := r.Template("physics")
	if got.BaseInstructions != "base" || got.UserPromptTemplate != "Write {{.QuestionCount}}" || got.ExampleQuestion != "EQ" {
		t.Errorf("override did not inherit default: %+v", got)
	}
	if got.LatexPolicy != LatexMixed {
		t.Errorf("LatexPolicy = %q", got.LatexPolicy)
	}
	if r.Template("biology").LatexPolicy != LatexNone {
		t.Error("default policy should be none")
	}
}

func TestNewRegistryErrors(t *testing.T) {
	def := SubjectPromptTemplate{UserPromptTemplate: "x"}
	tests := []struct {
		name      string
		def       SubjectPromptTemplate
		overrides []SubjectPromptTemplate
	}{
		{"empty default", SubjectPromptTemplate{}, nil},
		{"bad policy", SubjectPromptTemplate{UserPromptTemplate: "x", LatexPolicy: "some"}, nil},
		{"bad template", SubjectPromptTemplate{UserPromptTemplate: "{{.Nope"}, nil},
		{"override without subject", def, []SubjectPromptTemplate{{LatexPolicy: LatexFull}}},
		{"duplicate override", def, []SubjectPromptTemplate{{Subject: "a"}, {Subject: "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.def, tt.overrides...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadRequiresDefault(t *testing.T) {
	fsys := fstest.MapFS{
		"physics.yaml": {Data: []byte("subject: physics\nlatex_policy: mixed\n")},
	}
	if _, err := Load(fsys); err == nil {
		t.Error("expected error without default.yaml")
	}
}
