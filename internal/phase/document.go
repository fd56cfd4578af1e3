package phase

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

// Document is a route document split into an editable YAML front matter
// node and a body that is preserved byte for byte.
type Document struct {
	Path string

	front  *yaml.Node
	body   string
	digest string

	// bodyLine is the 1-based file line where the body starts
	bodyLine int
}

// ReadDocument loads and parses a route document from disk
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseDocument(path, data)
}

// ParseDocument splits data into front matter and body. The front matter
// must be a YAML mapping between two "---" lines at the top of the file.
func ParseDocument(path string, data []byte) (*Document, error) {
	front, body, bodyLine, ok := splitFrontMatter(data)
	if !ok {
		return nil, parseErrorf(path, 1, lineAt(data, 1), "missing front matter (expected a leading %q block)", frontMatterDelimiter)
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(front), &root); err != nil {
		line := yamlErrorLine(err)
		if line > 0 {
			line++ // front matter starts on file line 2
		}
		return nil, parseErrorf(path, line, lineAt(data, line), "invalid front matter: %v", err)
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		mapping = root.Content[0]
	}
	if mapping.Kind != yaml.MappingNode {
		return nil, parseErrorf(path, 2, lineAt(data, 2), "front matter must be a key/value mapping")
	}

	return &Document{
		Path:     path,
		front:    mapping,
		body:     body,
		digest:   Digest(data),
		bodyLine: bodyLine,
	}, nil
}

// Digest returns the hex blake3 hash of the document as read
func (d *Document) Digest() string {
	return d.digest
}

// Body returns the markdown after the front matter
func (d *Document) Body() string {
	return d.body
}

// SetWave sets the wave key, reporting whether the document changed
func (d *Document) SetWave(wave int) bool {
	value := strconv.Itoa(wave)
	_, v := d.lookup("wave")
	if v != nil {
		if v.Kind == yaml.ScalarNode && v.Value == value {
			return false
		}
		*v = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: value}
		return true
	}
	d.front.Content = append(d.front.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "wave"},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: value},
	)
	return true
}

// AddPrerequisite appends entry to the prerequisites list unless an
// equivalent entry is already present.
func (d *Document) AddPrerequisite(entry string) bool {
	item := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry}
	_, v := d.lookup("prerequisites")
	if v == nil {
		d.front.Content = append(d.front.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "prerequisites"},
			&yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle, Content: []*yaml.Node{item}},
		)
		return true
	}

	switch v.Kind {
	case yaml.SequenceNode:
		for _, existing := range v.Content {
			if samePrerequisite(existing.Value, entry) {
				return false
			}
		}
		v.Content = append(v.Content, item)
	case yaml.ScalarNode:
		if v.Tag == "!!null" {
			*v = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle, Content: []*yaml.Node{item}}
			return true
		}
		if samePrerequisite(v.Value, entry) {
			return false
		}
		old := *v
		*v = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle, Content: []*yaml.Node{&old, item}}
	default:
		return false
	}
	return true
}

func samePrerequisite(a, b string) bool {
	ta, okA := ParseType(a)
	tb, okB := ParseType(b)
	if okA && okB {
		return ta == tb
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Bytes renders the document with its current front matter
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontMatterDelimiter + "\n")

	if len(d.front.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(d.front); err != nil {
			return nil, fmt.Errorf("encode front matter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode front matter: %w", err)
		}
	}

	buf.WriteString(frontMatterDelimiter + "\n")
	buf.WriteString(d.body)
	return buf.Bytes(), nil
}

// Save writes the document back atomically: the new content goes to a
// temporary file in the same directory which then replaces the original.
func (d *Document) Save() error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return WriteFileAtomic(d.Path, data)
}

func (d *Document) lookup(key string) (*yaml.Node, *yaml.Node) {
	for i := 0; i+1 < len(d.front.Content); i += 2 {
		if d.front.Content[i].Value == key {
			return d.front.Content[i], d.front.Content[i+1]
		}
	}
	return nil, nil
}

// WriteFileAtomic replaces path with data, keeping the existing file mode
func WriteFileAtomic(path string, data []byte) (err error) {
	perm := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		perm = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Digest computes the hex blake3 hash of data
func Digest(data []byte) string {
	hasher := blake3.New()
	_, _ = hasher.Write(data)
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// splitFrontMatter returns the YAML between the leading delimiters, the
// remaining body and the 1-based line on which the body starts.
func splitFrontMatter(data []byte) (front string, body string, bodyLine int, ok bool) {
	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r\n") != frontMatterDelimiter {
		return "", "", 0, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == frontMatterDelimiter {
			return strings.Join(lines[1:i], ""), strings.Join(lines[i+1:], ""), i + 2, true
		}
	}
	return "", "", 0, false
}

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

func yamlErrorLine(err error) int {
	m := yamlLinePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
