package corpus

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML header a note may start with.
type frontMatter struct {
	Title     string     `yaml:"title"`
	Tags      stringList `yaml:"tags"`
	Links     stringList `yaml:"links"`
	Attendees stringList `yaml:"attendees"`
	Created   time.Time  `yaml:"created"`
}

// stringList accepts either a YAML sequence or a comma-separated scalar.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var out []string
		for _, part := range strings.Split(node.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*l = out
		return nil
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return err
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or a string", node.Line)
	}
}

var (
	wikiLinkRe  = regexp.MustCompile(`\[\[([^\]|#]+)(?:#[^\]|]*)?(?:\|[^\]]*)?\]\]`)
	mdLinkRe    = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
	inlineTagRe = regexp.MustCompile(`(?:^|\s)#([\p{L}][\p{L}\p{N}_/-]*)`)
)

// Parse builds a Document from raw file content.
// id is the slash-separated path relative to the corpus root.
func Parse(id string, data []byte, modTime time.Time) (*Document, error) {
	fm, body, err := splitFrontMatter(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:         id,
		Title:      strings.TrimSpace(fm.Title),
		Body:       body,
		Attendees:  cleanList(fm.Attendees),
		CreatedAt:  fm.Created,
		ModifiedAt: modTime,
		Size:       int64(len(data)),
	}
	if doc.Title == "" {
		doc.Title = headingTitle(body)
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(path.Base(id), path.Ext(id))
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = modTime
	}

	doc.Tags = mergeTags(fm.Tags, inlineTags(body))
	doc.Links = extractLinks(id, body, fm.Links)
	return doc, nil
}

// splitFrontMatter separates a leading "---" YAML block from the body.
func splitFrontMatter(data []byte) (frontMatter, string, error) {
	var fm frontMatter

	content := bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return fm, string(content), nil
	}

	rest := content[bytes.IndexByte(content, '\n')+1:]
	end := -1
	offset := 0
	for offset <= len(rest) {
		line := rest[offset:]
		nl := bytes.IndexByte(line, '\n')
		if nl >= 0 {
			line = line[:nl]
		}
		if string(bytes.TrimRight(line, "\r")) == "---" {
			end = offset
			break
		}
		if nl < 0 {
			break
		}
		offset += nl + 1
	}
	if end < 0 {
		// unterminated block is just body text
		return fm, string(content), nil
	}

	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return fm, "", fmt.Errorf("decode front matter: %w", err)
	}

	body := rest[end:]
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = nil
	}
	return fm, string(body), nil
}

// headingTitle returns the text of the first level-one heading.
func headingTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

func inlineTags(body string) []string {
	var tags []string
	for _, m := range inlineTagRe.FindAllStringSubmatch(body, -1) {
		tags = append(tags, m[1])
	}
	return tags
}

// mergeTags trims "#" and deduplicates case-insensitively, keeping first spelling.
func mergeTags(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, t := range list {
			t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "#"))
			if t == "" {
				continue
			}
			key := strings.ToLower(t)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractLinks resolves wiki links and relative markdown links to document IDs.
func extractLinks(id, body string, declared []string) []string {
	dir := path.Dir(id)
	seen := make(map[string]struct{})
	var out []string
	add := func(target string) {
		if target == "" {
			return
		}
		if _, ok := seen[target]; ok {
			return
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}

	for _, l := range declared {
		add(wikiTarget(l))
	}
	for _, m := range wikiLinkRe.FindAllStringSubmatch(body, -1) {
		add(wikiTarget(m[1]))
	}
	for _, m := range mdLinkRe.FindAllStringSubmatch(body, -1) {
		target := m[1]
		if strings.Contains(target, "://") || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "mailto:") {
			continue
		}
		if i := strings.IndexByte(target, '#'); i >= 0 {
			target = target[:i]
		}
		if strings.HasPrefix(target, "/") {
			add(strings.TrimPrefix(path.Clean(target), "/"))
		} else {
			add(path.Clean(path.Join(dir, target)))
		}
	}
	return out
}

// wikiTarget maps "[[Weekly Sync]]" style names to an ID with an extension.
func wikiTarget(name string) string {
	name = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(name), "[["), "]]"))
	if name == "" {
		return ""
	}
	if path.Ext(name) == "" {
		name += ".md"
	}
	return name
}
