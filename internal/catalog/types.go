package catalog

import "github.com/examinaite/examinaite/internal/model"

// Subject is a Leaving Certificate subject loaded from YAML.
type Subject struct {
	Name             string             `yaml:"name" json:"name"`
	DisplayName      string             `yaml:"display_name" json:"display_name"`
	DifficultyLevels []model.Difficulty `yaml:"difficulty_levels" json:"difficulty_levels"`
	Levels           []Level            `yaml:"levels" json:"levels"`
}

// Level is one grading tier of a subject (e.g. "Higher Level").
type Level struct {
	Name   string  `yaml:"name" json:"name"`
	Papers []Paper `yaml:"papers" json:"papers"`
}

// Paper is an exam component within a level.
type Paper struct {
	Name     string   `yaml:"name" json:"name"`
	Sections []string `yaml:"sections" json:"sections"`
	Topics   []Topic  `yaml:"topics" json:"topics"`
}

// Topic groups subtopics within a paper.
type Topic struct {
	Name        string     `yaml:"name" json:"name"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Subtopics   []Subtopic `yaml:"subtopics,omitempty" json:"subtopics,omitempty"`
}

// Subtopic narrows a topic for generation.
type Subtopic struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Keywords    []string         `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Examples    []string         `yaml:"examples,omitempty" json:"examples,omitempty"`
	Difficulty  model.Difficulty `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
}

// Level returns the named level.
func (s Subject) Level(name string) (Level, bool) {
	for _, l := range s.Levels {
		if l.Name == name {
			return l, true
		}
	}
	return Level{}, false
}

// LevelNames returns the level names in definition order.
func (s Subject) LevelNames() []string {
	names := make([]string, len(s.Levels))
	for i, l := range s.Levels {
		names[i] = l.Name
	}
	return names
}

// Paper returns the named paper.
func (l Level) Paper(name string) (Paper, bool) {
	for _, p := range l.Papers {
		if p.Name == name {
			return p, true
		}
	}
	return Paper{}, false
}

// Topic returns the named topic.
func (p Paper) Topic(name string) (Topic, bool) {
	for _, t := range p.Topics {
		if t.Name == name {
			return t, true
		}
	}
	return Topic{}, false
}

// Subtopic returns the named subtopic.
func (t Topic) Subtopic(name string) (Subtopic, bool) {
	for _, st := range t.Subtopics {
		if st.Name == name {
			return st, true
		}
	}
	return Subtopic{}, false
}

func (s Subject) clone() Subject {
	out := s
	out.DifficultyLevels = cloneSlice(s.DifficultyLevels)
	out.Levels = cloneEach(s.Levels, Level.clone)
	return out
}

func (l Level) clone() Level {
	out := l
	out.Papers = cloneEach(l.Papers, Paper.clone)
	return out
}

func (p Paper) clone() Paper {
	out := p
	out.Sections = cloneSlice(p.Sections)
	out.Topics = cloneEach(p.Topics, Topic.clone)
	return out
}

func (t Topic) clone() Topic {
	out := t
	out.Subtopics = cloneEach(t.Subtopics, Subtopic.clone)
	return out
}

func (st Subtopic) clone() Subtopic {
	out := st
	out.Keywords = cloneSlice(st.Keywords)
	out.Examples = cloneSlice(st.Examples)
	return out
}

// cloneSlice copies s, keeping nil and empty slices distinct.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneEach[T any](s []T, fn func(T) T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}
