// Package catalog holds the immutable Subject → Level → Paper → Topic →
// Subtopic registry used to constrain question generation.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidSubject is wrapped by Register when a definition is malformed.
var ErrInvalidSubject = errors.New("invalid subject definition")

// NotFoundError reports an unknown subject/level/paper/topic/subtopic path.
type NotFoundError struct {
	Kind string   // "subject", "level", "paper", "topic" or "subtopic"
	Path []string // path segments up to and including the missing one
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, strings.Join(e.Path, " / "))
}

// DuplicateSubjectError reports a second registration of the same slug.
type DuplicateSubjectError struct {
	Name string
}

func (e *DuplicateSubjectError) Error() string {
	return fmt.Sprintf("subject %q already registered", e.Name)
}

// Builder collects subject definitions during bootstrap. It is not safe for
// concurrent use; call Build once registration is complete.
type Builder struct {
	subjects map[string]Subject
	order    []string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{subjects: make(map[string]Subject)}
}

// Register adds a subject. Re-registering a slug fails with
// *DuplicateSubjectError instead of overwriting.
func (b *Builder) Register(s Subject) error {
	if err := validateSubject(s); err != nil {
		return err
	}
	if _, ok := b.subjects[s.Name]; ok {
		return &DuplicateSubjectError{Name: s.Name}
	}
	b.subjects[s.Name] = s.clone()
	b.order = append(b.order, s.Name)
	return nil
}

// Build returns an immutable catalog of everything registered so far.
func (b *Builder) Build() *Catalog {
	c := &Catalog{
		subjects: make(map[string]Subject, len(b.subjects)),
		order:    append([]string(nil), b.order...),
	}
	for name, s := range b.subjects {
		c.subjects[name] = s.clone()
	}
	sort.Strings(c.order)
	return c
}

// Catalog is a read-only subject registry, safe for concurrent readers.
type Catalog struct {
	subjects map[string]Subject
	order    []string // sorted slugs
}

// Get returns a copy of the subject registered under slug.
func (c *Catalog) Get(slug string) (Subject, error) {
	s, ok := c.subjects[slug]
	if !ok {
		return Subject{}, &NotFoundError{Kind: "subject", Path: []string{slug}}
	}
	return s.clone(), nil
}

// Subjects returns every subject sorted by slug.
func (c *Catalog) Subjects() []Subject {
	out := make([]Subject, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.subjects[name].clone())
	}
	return out
}

// Len returns the number of registered subjects.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Level resolves a subject level.
func (c *Catalog) Level(slug, level string) (Level, error) {
	s, ok := c.subjects[slug]
	if !ok {
		return Level{}, &NotFoundError{Kind: "subject", Path: []string{slug}}
	}
	l, ok := s.Level(level)
	if !ok {
		return Level{}, &NotFoundError{Kind: "level", Path: []string{slug, level}}
	}
	return l.clone(), nil
}

// Paper resolves a paper within a subject level.
func (c *Catalog) Paper(slug, level, paper string) (Paper, error) {
	l, err := c.Level(slug, level)
	if err != nil {
		return Paper{}, err
	}
	p, ok := l.Paper(paper)
	if !ok {
		return Paper{}, &NotFoundError{Kind: "paper", Path: []string{slug, level, paper}}
	}
	return p, nil
}

// Topic resolves a topic within a paper.
func (c *Catalog) Topic(slug, level, paper, topic string) (Topic, error) {
	p, err := c.Paper(slug, level, paper)
	if err != nil {
		return Topic{}, err
	}
	t, ok := p.Topic(topic)
	if !ok {
		return Topic{}, &NotFoundError{Kind: "topic", Path: []string{slug, level, paper, topic}}
	}
	return t, nil
}

// FindTopic searches every paper of a level for topic and returns the first
// paper that carries it.
func (c *Catalog) FindTopic(slug, level, topic string) (Paper, Topic, error) {
	l, err := c.Level(slug, level)
	if err != nil {
		return Paper{}, Topic{}, err
	}
	for _, p := range l.Papers {
		if t, ok := p.Topic(topic); ok {
			return p, t, nil
		}
	}
	return Paper{}, Topic{}, &NotFoundError{Kind: "topic", Path: []string{slug, level, topic}}
}

// ListTopics returns the topic names of a paper in definition order.
func (c *Catalog) ListTopics(slug, level, paper string) ([]string, error) {
	p, err := c.Paper(slug, level, paper)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(p.Topics))
	for i, t := range p.Topics {
		names[i] = t.Name
	}
	return names, nil
}

// ListSubtopics returns the subtopics of a topic in definition order.
func (c *Catalog) ListSubtopics(slug, level, paper, topic string) ([]Subtopic, error) {
	t, err := c.Topic(slug, level, paper, topic)
	if err != nil {
		return nil, err
	}
	if t.Subtopics == nil {
		return []Subtopic{}, nil
	}
	return t.Subtopics, nil
}

func validateSubject(s Subject) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSubject)
	}
	if len(s.Levels) == 0 {
		return fmt.Errorf("%w: %s has no levels", ErrInvalidSubject, s.Name)
	}
	for _, d := range s.DifficultyLevels {
		if !d.Valid() {
			return fmt.Errorf("%w: %s has unknown difficulty %q", ErrInvalidSubject, s.Name, d)
		}
	}

	levels := make(map[string]bool)
	for _, l := range s.Levels {
		if l.Name == "" || levels[l.Name] {
			return fmt.Errorf("%w: %s has empty or duplicate level %q", ErrInvalidSubject, s.Name, l.Name)
		}
		levels[l.Name] = true

		if len(l.Papers) == 0 {
			return fmt.Errorf("%w: %s / %s has no papers", ErrInvalidSubject, s.Name, l.Name)
		}
		papers := make(map[string]bool)
		for _, p := range l.Papers {
			if p.Name == "" || papers[p.Name] {
				return fmt.Errorf("%w: %s / %s has empty or duplicate paper %q", ErrInvalidSubject, s.Name, l.Name, p.Name)
			}
			papers[p.Name] = true
			if err := validatePaper(s.Name+" / "+l.Name+" / "+p.Name, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePaper(path string, p Paper) error {
	if len(p.Topics) == 0 {
		return fmt.Errorf("%w: %s has no topics", ErrInvalidSubject, path)
	}
	topics := make(map[string]bool)
	for _, t := range p.Topics {
		if t.Name == "" || topics[t.Name] {
			return fmt.Errorf("%w: %s has empty or duplicate topic %q", ErrInvalidSubject, path, t.Name)
		}
		topics[t.Name] = true

		subtopics := make(map[string]bool)
		for _, st := range t.Subtopics {
			if st.Name == "" || subtopics[st.Name] {
				return fmt.Errorf("%w: %s / %s has empty or duplicate subtopic %q", ErrInvalidSubject, path, t.Name, st.Name)
			}
			if st.Difficulty != "" && !st.Difficulty.Valid() {
				return fmt.Errorf("%w: %s / %s / %s has unknown difficulty %q", ErrInvalidSubject, path, t.Name, st.Name, st.Difficulty)
			}
			subtopics[st.Name] = true
		}
	}
	return nil
}
