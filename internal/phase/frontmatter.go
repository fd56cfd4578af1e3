package phase

import (
	"errors"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"
)

// frontMatter holds the keys the validator consumes. Everything else in a
// route document's front matter is left alone.
type frontMatter struct {
	wave          int
	autonomous    bool
	route         int
	phase         int
	phaseName     string
	dependsOn     []refValue
	prerequisites []refValue
}

// refValue is a raw scalar kept as written, so "3.10" is never read as 3.1
type refValue struct {
	value string
	line  int
}

var (
	decimalPattern      = regexp.MustCompile(`^[0-9]+$`)
	leadingDigitPattern = regexp.MustCompile(`^([0-9]+)`)
)

// decodeFrontMatter walks the front matter mapping node. Line numbers in
// the node are relative to the YAML block, which starts on file line 2.
func decodeFrontMatter(path string, data []byte, m *yaml.Node) (frontMatter, error) {
	fm := frontMatter{autonomous: true}
	waveSeen := false

	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i].Value, m.Content[i+1]
		line := val.Line + 1
		fail := func(format string, args ...any) error {
			return parseErrorf(path, line, lineAt(data, line), format, args...)
		}

		switch key {
		case "wave":
			n, ok := intValue(val)
			if !ok || n < 1 {
				return fm, fail("wave must be an integer >= 1, got %q", val.Value)
			}
			fm.wave = n
			waveSeen = true

		case "autonomous":
			if val.Kind != yaml.ScalarNode || val.Tag != "!!bool" {
				return fm, fail("autonomous must be true or false, got %q", val.Value)
			}
			var b bool
			if err := val.Decode(&b); err != nil {
				return fm, fail("autonomous must be true or false, got %q", val.Value)
			}
			fm.autonomous = b

		case "route", "plan":
			n, ok := intValue(val)
			if !ok || n < 1 {
				return fm, fail("%s must be a positive integer, got %q", key, val.Value)
			}
			fm.route = n

		case "phase":
			// planning tools write either "3" or "03-authentication"
			if val.Kind == yaml.ScalarNode {
				if mm := leadingDigitPattern.FindStringSubmatch(val.Value); mm != nil {
					fm.phase, _ = strconv.Atoi(mm[1])
				}
			}

		case "phase_name", "name":
			if val.Kind != yaml.ScalarNode {
				return fm, fail("%s must be a string", key)
			}
			if fm.phaseName == "" || key == "phase_name" {
				fm.phaseName = val.Value
			}

		case "depends_on":
			refs, err := scalarList(val)
			if err != nil {
				return fm, fail("depends_on: %s", err.Error())
			}
			fm.dependsOn = refs

		case "prerequisites":
			refs, err := scalarList(val)
			if err != nil {
				return fm, fail("prerequisites: %s", err.Error())
			}
			fm.prerequisites = refs
		}
	}

	if !waveSeen {
		return fm, parseErrorf(path, 1, lineAt(data, 1), "missing required front matter key %q", "wave")
	}
	return fm, nil
}

// intValue accepts plain decimal scalars only. Quoted numbers, floats and
// YAML's hex/octal forms are rejected.
func intValue(n *yaml.Node) (int, bool) {
	if n.Kind != yaml.ScalarNode || n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) != 0 {
		return 0, false
	}
	if !decimalPattern.MatchString(n.Value) {
		return 0, false
	}
	v, err := strconv.Atoi(n.Value)
	return v, err == nil
}

// scalarList accepts a sequence of scalars, a single scalar or null
func scalarList(n *yaml.Node) ([]refValue, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" || n.Value == "" {
			return nil, nil
		}
		return []refValue{{value: n.Value, line: n.Line + 1}}, nil
	case yaml.SequenceNode:
		refs := make([]refValue, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, errors.New("entries must be plain values, not nested lists or maps")
			}
			refs = append(refs, refValue{value: item.Value, line: item.Line + 1})
		}
		return refs, nil
	default:
		return nil, errors.New("expected a list")
	}
}
