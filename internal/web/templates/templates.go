// Package templates holds the HTML views as templ components.
//
// Markup lives in embedded html/template files so escaping stays
// contextual; each exported function wraps one named template in a
// templ.Component, so handlers and datastar render them the same way.
package templates

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/a-h/templ"
)

//go:embed html/*.html
var files embed.FS

var views = template.Must(template.New("").Funcs(template.FuncMap{
	"num":      FormatNumber,
	"pct":      func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"fixed":    func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"checked":  func(b bool) template.HTMLAttr { return attrIf(b, "checked") },
	"selected": func(b bool) template.HTMLAttr { return attrIf(b, "selected") },
	"selectArgs": func(label, name string, choices []Choice, optional bool) selectArgs {
		return selectArgs{Label: label, Name: name, Choices: choices, Optional: optional}
	},
}).ParseFS(files, "html/*.html"))

// selectArgs feeds the "select" partial; a template call takes one value.
type selectArgs struct {
	Label    string
	Name     string
	Choices  []Choice
	Optional bool
}

func attrIf(b bool, attr string) template.HTMLAttr {
	if b {
		return template.HTMLAttr(attr)
	}
	return ""
}

// FormatNumber prints statistics the way a describe() table does.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.4f", f)
}

func view(name string, data any) templ.Component {
	t := views.Lookup(name)
	if t == nil {
		panic("templates: no view named " + name)
	}
	return templ.FromGoHTML(t, data)
}

// Page wraps body in the site layout.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := views.ExecuteTemplate(w, "layout_head", title); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return views.ExecuteTemplate(w, "layout_foot", nil)
	})
}

// ErrorView is a user-facing error box.
type ErrorView struct {
	Message string
	Action  string
	Code    string
}

// ErrorAlert renders a standalone error box.
func ErrorAlert(e ErrorView) templ.Component { return view("error_alert", e) }

// Home is the landing page listing the tools.
func Home() templ.Component {
	return Page("Data Tools", view("home", nil))
}
