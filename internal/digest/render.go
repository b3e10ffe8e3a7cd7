package digest

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header of a digest file.
type Frontmatter struct {
	Title    string   `yaml:"title"`
	Slug     string   `yaml:"slug"`
	Datetime string   `yaml:"datetime"`
	Summary  string   `yaml:"summary,omitempty"`
	Tokens   []string `yaml:"tokens,omitempty"`
}

// Entry is one post as rendered in the digest body.
type Entry struct {
	Token       string
	Author      string
	Verified    bool
	Text        string
	Description string
	Quality     float64
	Reasons     []string
	Likes       int
	Retweets    int
	Views       int
	Release     string
	Warnings    []string
	Created     string
	URL         string
}

type Data struct {
	Frontmatter
	Entries []Entry
}

//go:embed digest.tmpl
var digestTpl string

var compiled = template.Must(template.New("digest").Funcs(template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"join":  strings.Join,
	"quote": blockquote,
}).Parse(digestTpl))

func blockquote(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

// Render produces the markdown file: YAML frontmatter followed by the templated body.
func Render(d Data) (string, error) {
	fm, err := yaml.Marshal(d.Frontmatter)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	if err := compiled.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
