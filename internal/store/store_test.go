package store

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/examinaite/examinaite/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func saveTestGeneration(t *testing.T, s *Store, subject, topic string, n int, at time.Time) model.GenerationRecord {
	t.Helper()
	req := model.GenerationRequest{
		Subject:    subject,
		Level:      "Higher Level",
		Paper:      "Paper 1",
		Difficulty: model.DifficultyMedium,
		Topic:      topic,
	}
	var res model.GenerationResult
	for i := 1; i <= n; i++ {
		res.Questions = append(res.Questions, model.QuestionItem{Question: topic + " question"})
		res.Solutions = append(res.Solutions, model.SolutionItem{QuestionIndex: i, Solution: topic + " solution"})
	}
	rec, err := model.NewRecord("", req, res)
	if err != nil {
		t.Fatalf("NewRecord: %v", err)
	}
	rec.CreatedAt = at
	saved, err := s.SaveGeneration(rec)
	if err != nil {
		t.Fatalf("SaveGeneration: %v", err)
	}
	return saved
}

func TestGenerationCRUD(t *testing.T) {
	s := newTestStore(t)

	// Empty DB should return zero count and empty list.
	count, err := s.GenerationCount()
	if err != nil {
		t.Fatalf("GenerationCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 generations, got %d", count)
	}
	list, err := s.ListGenerations("")
	if err != nil {
		t.Fatalf("ListGenerations: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	saved := saveTestGeneration(t, s, "mathematics", "Calculus", 3, time.Time{})
	if saved.ID == "" {
		t.Fatal("expected an ID to be assigned")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := s.GetGeneration(saved.ID)
	if err != nil {
		t.Fatalf("GetGeneration: %v", err)
	}
	if got.Title != "mathematics Higher Level: Calculus" {
		t.Errorf("unexpected title %q", got.Title)
	}
	if got.Difficulty != model.DifficultyMedium {
		t.Errorf("expected difficulty medium, got %q", got.Difficulty)
	}
	if !reflect.DeepEqual(got.Questions, saved.Questions) {
		t.Errorf("questions differ:\n got %+v\nwant %+v", got.Questions, saved.Questions)
	}
	if got.Questions[2].Metadata["index"] != "3" || got.Questions[0].Metadata["paper"] != "Paper 1" {
		t.Errorf("unexpected metadata: %v", got.Questions[2].Metadata)
	}

	res := got.Result()
	if len(res.Questions) != len(res.Solutions) {
		t.Errorf("round trip: %d questions, %d solutions", len(res.Questions), len(res.Solutions))
	}

	// Not found.
	_, err = s.GetGeneration("missing")
	if err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	// Delete.
	if err := s.DeleteGeneration(saved.ID); err != nil {
		t.Fatalf("DeleteGeneration: %v", err)
	}
	if _, err := s.GetGeneration(saved.ID); err != sql.ErrNoRows {
		t.Errorf("expected ErrNoRows after delete, got %v", err)
	}
	if err := s.DeleteGeneration(saved.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second delete: expected ErrNoRows, got %v", err)
	}
	count, err = s.GenerationCount()
	if err != nil {
		t.Fatalf("GenerationCount: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 after delete, got %d", count)
	}
}

func TestSaveDuplicateID(t *testing.T) {
	s := newTestStore(t)
	saved := saveTestGeneration(t, s, "physics", "Optics", 1, time.Time{})

	if _, err := s.SaveGeneration(saved); err == nil {
		t.Fatal("expected error saving the same ID twice")
	}
	got, err := s.GetGeneration(saved.ID)
	if err != nil {
		t.Fatalf("GetGeneration: %v", err)
	}
	if len(got.Questions) != 1 {
		t.Errorf("failed save should not add questions, got %d", len(got.Questions))
	}
}

func TestListGenerations(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	saveTestGeneration(t, s, "mathematics", "Algebra", 1, base)
	saveTestGeneration(t, s, "physics", "Mechanics", 2, base.Add(time.Hour))
	saveTestGeneration(t, s, "mathematics", "Calculus", 3, base.Add(2*time.Hour))

	tests := []struct {
		name       string
		subject    string
		wantTopics []string
	}{
		{"no filter", "", []string{"Calculus", "Mechanics", "Algebra"}},
		{"mathematics", "mathematics", []string{"Calculus", "Algebra"}},
		{"physics", "physics", []string{"Mechanics"}},
		{"no match", "biology", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.ListGenerations(tt.subject)
			if err != nil {
				t.Fatalf("ListGenerations: %v", err)
			}
			var topics []string
			for _, r := range recs {
				topics = append(topics, r.Topic)
				if len(r.Questions) == 0 {
					t.Errorf("%s: questions not loaded", r.Topic)
				}
			}
			if !reflect.DeepEqual(topics, tt.wantTopics) {
				t.Errorf("topics = %v, want %v", topics, tt.wantTopics)
			}
		})
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetMetadata("missing")
	if err != nil || v != "" {
		t.Errorf("GetMetadata(missing) = %q, %v", v, err)
	}
	if err := s.SetMetadata("k", "v1"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := s.SetMetadata("k", "v2"); err != nil {
		t.Fatalf("SetMetadata upsert: %v", err)
	}
	if v, _ := s.GetMetadata("k"); v != "v2" {
		t.Errorf("expected v2, got %q", v)
	}

	info := model.ServiceInfo{Model: "gpt-4o-mini", CatalogSubjects: 7, StartedAt: "2026-06-01T09:00:00Z"}
	if err := s.SetServiceInfo(info); err != nil {
		t.Fatalf("SetServiceInfo: %v", err)
	}
	got, err := s.GetServiceInfo()
	if err != nil {
		t.Fatalf("GetServiceInfo: %v", err)
	}
	if got != info {
		t.Errorf("GetServiceInfo = %+v, want %+v", got, info)
	}
}

func TestExportAllGenerations(t *testing.T) {
	s := newTestStore(t)

	empty, err := s.ExportAllGenerations()
	if err != nil {
		t.Fatalf("ExportAllGenerations: %v", err)
	}
	if empty.Count != 0 || empty.Generations == nil {
		t.Errorf("empty export = %+v", empty)
	}

	saveTestGeneration(t, s, "chemistry", "Organic Chemistry", 2, time.Time{})
	saveTestGeneration(t, s, "biology", "Genetics", 1, time.Time{})
	if err := s.SetServiceInfo(model.ServiceInfo{Model: "m"}); err != nil {
		t.Fatal(err)
	}

	exp, err := s.ExportAllGenerations()
	if err != nil {
		t.Fatalf("ExportAllGenerations: %v", err)
	}
	if exp.Count != 2 || len(exp.Generations) != 2 {
		t.Errorf("expected 2 generations, got count %d, len %d", exp.Count, len(exp.Generations))
	}
	if exp.Service.Model != "m" {
		t.Errorf("expected service model m, got %q", exp.Service.Model)
	}
	if exp.ExportedAt.IsZero() {
		t.Error("ExportedAt not set")
	}
}
