package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "Subjects")
	if got != "Subjects" {
		t.Errorf("T(Subjects) = %q, want 'Subjects'", got)
	}

	got = T(ctx, "GeneratorUnavailable")
	if got != "The question generator is unavailable right now. Please try again." {
		t.Errorf("T(GeneratorUnavailable) = %q", got)
	}
}

func TestTranslateIrish(t *testing.T) {
	ctx := initLang(t, "ga")

	got := T(ctx, "Subjects")
	if got != "Ábhair" {
		t.Errorf("T(Subjects) = %q, want 'Ábhair'", got)
	}

	got = T(ctx, "Levels")
	if got != "Leibhéil" {
		t.Errorf("T(Levels) = %q, want 'Leibhéil'", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "SubjectsAvailable", 1)
	if got1 != "1 subject available." {
		t.Errorf("Tp(SubjectsAvailable, 1) = %q, want '1 subject available.'", got1)
	}

	got7 := Tp(ctx, "SubjectsAvailable", 7)
	if got7 != "7 subjects available." {
		t.Errorf("Tp(SubjectsAvailable, 7) = %q, want '7 subjects available.'", got7)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "NotFound", map[string]any{"What": "subject latin"})
	if got != "Not found: subject latin." {
		t.Errorf("Td(NotFound) = %q, want 'Not found: subject latin.'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMatch(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	tests := []struct {
		header string
		want   string
	}{
		{"", "en"},
		{"ga-IE,ga;q=0.9,en;q=0.8", "ga"},
		{"en-GB", "en"},
		{"de-DE", "en"},
		{"not a header;;", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := Match(tt.header); got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "Subjects")
	}))

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"default", "/", "", "Subjects"},
		{"accept-language", "/", "ga", "Ábhair"},
		{"query wins", "/?lang=en", "ga", "Subjects"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
