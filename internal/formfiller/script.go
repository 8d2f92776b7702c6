package formfiller

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/template"

	"tutorsheet/internal/model"
	"tutorsheet/internal/roster"
)

const (
	scriptName    = "Tutor Report Form Filler"
	scriptVersion = "0.2"
)

//go:embed userscript.js.tmpl
var scriptTemplate string

var tmpl = template.Must(template.New("userscript").Funcs(template.FuncMap{
	"json": toJSON,
}).Parse(scriptTemplate))

// Script is the data behind one generated userscript.
type Script struct {
	Name     string
	Version  string
	Author   string
	MatchURL string

	Students  []Student
	FullNames [][2]string

	TutorFirstName string
	TutorLastName  string
	// Signature is a data URL drawn into the signature canvas.
	Signature string
}

// Options carries the configured parts of the userscript.
type Options struct {
	Author    string
	MatchURL  string
	Signature string
	Roster    *roster.Roster
}

// New builds the script data for the given meetings.
func New(occs []model.Occurrence, opts Options) Script {
	s := Script{
		Name:      scriptName,
		Version:   scriptVersion,
		Author:    opts.Author,
		MatchURL:  opts.MatchURL,
		Students:  Aggregate(occs),
		FullNames: FullNames(opts.Roster),
		Signature: opts.Signature,
	}
	if opts.Roster != nil {
		s.TutorFirstName = opts.Roster.Tutor.First
		s.TutorLastName = opts.Roster.Tutor.Last
	}
	return s
}

// Render writes the userscript.
func Render(w io.Writer, s Script) error {
	if s.MatchURL == "" {
		return fmt.Errorf("formfiller: match URL is required")
	}
	if err := tmpl.Execute(w, s); err != nil {
		return fmt.Errorf("formfiller: render: %w", err)
	}
	return nil
}

// WriteFile renders the userscript to path.
func WriteFile(path string, s Script) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("formfiller: %w", err)
	}
	if err := Render(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// toJSON renders v as a JavaScript literal. encoding/json escapes <, > and
// & so the output cannot close a surrounding script tag.
func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
