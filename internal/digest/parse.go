package digest

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a digest file read back from disk.
type Document struct {
	Frontmatter Frontmatter
	Body        string
}

// ParseFile reads a markdown file and splits its YAML frontmatter from the body.
// Frontmatter is expected at the top of the file between two lines containing only "---".
// A file without frontmatter yields a zero Frontmatter and the whole file as body.
func ParseFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return parse(bufio.NewReader(f))
}

func parse(br *bufio.Reader) (Document, error) {
	peek, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return Document{}, err
	}
	var fm, body strings.Builder
	if string(peek) == "---" {
		if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, err
		}
		for {
			l, err := br.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return Document{}, err
			}
			if strings.TrimSpace(l) == "---" {
				break
			}
			fm.WriteString(l)
			if errors.Is(err, io.EOF) {
				break
			}
		}
	}
	if _, err := io.Copy(&body, br); err != nil {
		return Document{}, err
	}

	d := Document{Body: body.String()}
	if fm.Len() > 0 {
		if err := yaml.Unmarshal([]byte(fm.String()), &d.Frontmatter); err != nil {
			return Document{}, err
		}
	}
	return d, nil
}
