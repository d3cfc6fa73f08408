// Package prompts assembles the system and user prompts for question
// generation from per-subject templates.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/examinaite/examinaite/internal/catalog"
	"github.com/examinaite/examinaite/internal/model"
)

// LatexPolicy controls how much LaTeX the model is told to emit.
type LatexPolicy string

const (
	// LatexNone gives no LaTeX guidance.
	LatexNone LatexPolicy = "none"
	// LatexMixed allows occasional formulas inside mostly plain text.
	LatexMixed LatexPolicy = "mixed"
	// LatexFull requires every mathematical token to be delimited.
	LatexFull LatexPolicy = "full"
)

// Escaping instructions injected verbatim into the system prompt. The model's
// answer is parsed as JSON, so a single unescaped backslash breaks parsing.
const (
	LatexMixedInstructions = `Use LaTeX only for the occasional formula; plain text should dominate. ` +
		`Wrap each formula in $...$. The response is JSON, so every LaTeX backslash must be written twice: ` +
		`write \\frac{a}{b} and \\sqrt{x}, never \frac{a}{b}.`
	LatexFullInstructions = `Write every mathematical expression, symbol, variable and equation in LaTeX, ` +
		`delimited by $...$ for inline maths or $$...$$ for display maths. No mathematical token may appear outside a delimiter. ` +
		`The response is JSON, so every LaTeX backslash must be double-escaped: write \\frac{1}{2}, \\int_0^1 x\\,dx and \\times, ` +
		`never \frac{1}{2}. Do not use \\( \\) or \\[ \\] delimiters.`
)

// Valid reports whether p is a known policy.
func (p LatexPolicy) Valid() bool {
	switch p {
	case LatexNone, LatexMixed, LatexFull:
		return true
	}
	return false
}

// Instructions returns the escaping guidance for the policy.
func (p LatexPolicy) Instructions() string {
	switch p {
	case LatexMixed:
		return LatexMixedInstructions
	case LatexFull:
		return LatexFullInstructions
	}
	return ""
}

// SubjectPromptTemplate is the prompt definition for one subject. The empty
// Subject names the shared default.
type SubjectPromptTemplate struct {
	Subject            string      `yaml:"subject"`
	BaseInstructions   string      `yaml:"base_instructions"`
	UserPromptTemplate string      `yaml:"user_prompt_template"`
	LatexPolicy        LatexPolicy `yaml:"latex_policy"`
	ExampleQuestion    string      `yaml:"example_question"`
	ExampleSolution    string      `yaml:"example_solution"`
}

// Prompt is the system/user pair sent to the model.
type Prompt struct {
	System string
	User   string
}

// Context carries catalog details that enrich a request.
type Context struct {
	SubjectName string // display name
	Sections    []string
	Topic       *catalog.Topic
	Subtopic    *catalog.Subtopic
}

// UserData holds template data for user prompts.
type UserData struct {
	Subject             string
	Level               string
	Paper               string
	Sections            []string
	Difficulty          string
	Topic               string
	TopicDescription    string
	Subtopic            string
	SubtopicDescription string
	Keywords            []string
	Examples            []string
	QuestionCount       int
}

type compiled struct {
	SubjectPromptTemplate
	user *template.Template
}

// Registry resolves prompt templates by subject slug.
type Registry struct {
	def       *compiled
	overrides map[string]*compiled
}

//go:embed templates/*.yaml
var templatesFS embed.FS

var funcs = template.FuncMap{
	"join": strings.Join,
}

// NewRegistry compiles the default template and the per-subject overrides.
// Missing override fields fall back to the default.
func NewRegistry(def SubjectPromptTemplate, overrides ...SubjectPromptTemplate) (*Registry, error) {
	if def.UserPromptTemplate == "" {
		return nil, errors.New("default template has no user prompt")
	}
	if def.LatexPolicy == "" {
		def.LatexPolicy = LatexNone
	}
	d, err := compile(def)
	if err != nil {
		return nil, fmt.Errorf("default template: %w", err)
	}

	r := &Registry{def: d, overrides: make(map[string]*compiled)}
	for _, o := range overrides {
		if o.Subject == "" {
			return nil, errors.New("override template has no subject")
		}
		if _, ok := r.overrides[o.Subject]; ok {
			return nil, fmt.Errorf("duplicate template for subject %q", o.Subject)
		}
		merged := mergeDefault(o, def)
		c, err := compile(merged)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", o.Subject, err)
		}
		r.overrides[o.Subject] = c
	}
	return r, nil
}

// Default loads the bundled templates.
func Default() (*Registry, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load reads templates from fsys. default.yaml holds the shared default and
// every other YAML file is a subject override.
func Load(fsys fs.FS) (*Registry, error) {
	var (
		def       *SubjectPromptTemplate
		overrides []SubjectPromptTemplate
	)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if ext := path.Ext(p); ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read prompt file %s: %w", p, err)
		}
		var t SubjectPromptTemplate
		if err := yaml.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("parse prompt file %s: %w", p, err)
		}
		if strings.TrimSuffix(path.Base(p), path.Ext(p)) == "default" {
			def = &t
			return nil
		}
		overrides = append(overrides, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, errors.New("no default prompt template")
	}
	return NewRegistry(*def, overrides...)
}

// Template returns the effective template for a subject.
func (r *Registry) Template(subject string) SubjectPromptTemplate {
	return r.lookup(subject).SubjectPromptTemplate
}

func (r *Registry) lookup(subject string) *compiled {
	if c, ok := r.overrides[subject]; ok {
		return c
	}
	return r.def
}

// Build assembles the prompt pair for req.
func (r *Registry) Build(req model.GenerationRequest, pc Context) (Prompt, error) {
	t := r.lookup(req.Subject)

	count := req.QuestionCount
	if count < 1 {
		count = 1
	}
	data := UserData{
		Subject:       req.Subject,
		Level:         req.Level,
		Paper:         req.Paper,
		Sections:      req.Sections,
		Difficulty:    difficultyText(req.Difficulty),
		Topic:         req.Topic,
		Subtopic:      req.Subtopic,
		QuestionCount: count,
	}
	if pc.SubjectName != "" {
		data.Subject = pc.SubjectName
	}
	if len(data.Sections) == 0 {
		data.Sections = pc.Sections
	}
	if pc.Topic != nil {
		data.TopicDescription = pc.Topic.Description
	}
	if pc.Subtopic != nil {
		data.SubtopicDescription = pc.Subtopic.Description
		data.Keywords = pc.Subtopic.Keywords
		data.Examples = pc.Subtopic.Examples
	}

	var buf bytes.Buffer
	if err := t.user.Execute(&buf, data); err != nil {
		return Prompt{}, fmt.Errorf("render user prompt: %w", err)
	}
	user := strings.TrimSpace(buf.String())

	constraint := TopicConstraint(req.Topic, req.Subtopic)
	if constraint != "" {
		user += "\n\n" + constraint
	}

	return Prompt{
		System: buildSystemPrompt(t.SubjectPromptTemplate, count, constraint),
		User:   user,
	}, nil
}

// TopicConstraint returns the negative instruction that pins generation to a
// topic, or "" when no topic is requested.
func TopicConstraint(topic, subtopic string) string {
	if topic == "" {
		return ""
	}
	target := fmt.Sprintf("topic %q", topic)
	if subtopic != "" {
		target = fmt.Sprintf("topic %q (subtopic %q)", topic, subtopic)
	}
	return fmt.Sprintf("ONLY generate questions on %s; do not generate questions on unrelated topics.", target)
}

func buildSystemPrompt(t SubjectPromptTemplate, count int, constraint string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(t.BaseInstructions))
	sb.WriteString("\n\n")

	sb.WriteString("OUTPUT FORMAT:\n")
	sb.WriteString("Respond ONLY with a JSON object with these fields:\n")
	sb.WriteString(`{"questions": [{"question": "<question text>"}], "solutions": [{"questionIndex": <1-based question number>, "solution": "<full worked solution>"}]}`)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Return exactly %d questions and exactly %d solutions. ", count, count))
	sb.WriteString(fmt.Sprintf("Each solution's questionIndex refers to its question, numbered 1 to %d, with no repeats.\n", count))

	if t.ExampleQuestion != "" {
		sb.WriteString("\nEXAMPLE QUESTION:\n" + strings.TrimSpace(t.ExampleQuestion) + "\n")
	}
	if t.ExampleSolution != "" {
		sb.WriteString("\nEXAMPLE SOLUTION:\n" + strings.TrimSpace(t.ExampleSolution) + "\n")
	}

	if latex := t.LatexPolicy.Instructions(); latex != "" {
		sb.WriteString("\nLATEX:\n" + latex + "\n")
	}

	if constraint != "" {
		sb.WriteString("\nTOPIC CONSTRAINT:\n" + constraint + "\n")
	}
	return sb.String()
}

func difficultyText(d model.Difficulty) string {
	switch d {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
		return string(d)
	}
	return "mixed-difficulty"
}

func mergeDefault(o, def SubjectPromptTemplate) SubjectPromptTemplate {
	if o.BaseInstructions == "" {
		o.BaseInstructions = def.BaseInstructions
	}
	if o.UserPromptTemplate == "" {
		o.UserPromptTemplate = def.UserPromptTemplate
	}
	if o.LatexPolicy == "" {
		o.LatexPolicy = def.LatexPolicy
	}
	if o.ExampleQuestion == "" && o.ExampleSolution == "" {
		o.ExampleQuestion = def.ExampleQuestion
		o.ExampleSolution = def.ExampleSolution
	}
	return o
}

func compile(t SubjectPromptTemplate) (*compiled, error) {
	if !t.LatexPolicy.Valid() {
		return nil, fmt.Errorf("invalid latex policy %q", t.LatexPolicy)
	}
	tmpl, err := template.New("user").Funcs(funcs).Parse(t.UserPromptTemplate)
	if err != nil {
		return nil, err
	}
	return &compiled{SubjectPromptTemplate: t, user: tmpl}, nil
}
