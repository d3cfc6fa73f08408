// Package views renders the HTML pages.
package views

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/examinaite/examinaite/internal/catalog"
	"github.com/examinaite/examinaite/internal/i18n"
	"github.com/examinaite/examinaite/internal/model"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:52rem;margin:2rem auto;padding:0 1rem;color:#222}
h1{margin-bottom:.2rem}.tagline{color:#555;margin-top:0}
ul.subjects{list-style:none;padding:0}ul.subjects li{padding:.5rem 0;border-bottom:1px solid #eee}
.levels{color:#555;font-size:.9rem}footer{margin-top:2rem;color:#777;font-size:.85rem}`

// Layout wraps body in the common page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"><title>%s</title><style>%s</style></head><body>",
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// IndexPage lists the catalog subjects with their levels.
func IndexPage(subjects []catalog.Subject, generations int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := i18n.T(ctx, "AppTitle")
		return Layout(title, subjectList(title, subjects, generations)).Render(ctx, w)
	})
}

func subjectList(title string, subjects []catalog.Subject, generations int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		base := model.BasePathFromContext(ctx)

		var sb strings.Builder
		fmt.Fprintf(&sb, "<h1>%s</h1><p class=\"tagline\">%s</p>",
			templ.EscapeString(title), templ.EscapeString(i18n.T(ctx, "Tagline")))
		fmt.Fprintf(&sb, "<h2>%s</h2><p>%s</p><ul class=\"subjects\">",
			templ.EscapeString(i18n.T(ctx, "Subjects")),
			templ.EscapeString(i18n.Tp(ctx, "SubjectsAvailable", len(subjects))))
		for _, s := range subjects {
			name := s.DisplayName
			if name == "" {
				name = s.Name
			}
			href := base + "/api/subjects/" + url.PathEscape(s.Name)
			fmt.Fprintf(&sb, "<li><a href=\"%s\">%s</a><div class=\"levels\">%s: %s</div></li>",
				templ.EscapeString(href), templ.EscapeString(name),
				templ.EscapeString(i18n.T(ctx, "Levels")),
				templ.EscapeString(strings.Join(s.LevelNames(), ", ")))
		}
		sb.WriteString("</ul>")
		fmt.Fprintf(&sb, "<footer>%s</footer>", templ.EscapeString(i18n.Tp(ctx, "GenerationsStored", generations)))

		_, err := io.WriteString(w, sb.String())
		return err
	})
}
