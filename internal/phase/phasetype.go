package phase

import (
	"strings"
	"unicode"
)

// Type is the structural category of a phase, inferred from its name
type Type string

// Phase types. TypeNone means the name matched no rule.
const (
	TypeNone           Type = ""
	TypeSetup          Type = "Setup"
	TypeDatabase       Type = "Database"
	TypeInfrastructure Type = "Infrastructure"
	TypeAuth           Type = "Auth"
	TypeAPI            Type = "API"
	TypeBusinessLogic  Type = "Business Logic"
	TypeFrontend       Type = "Frontend"
	TypeFeatures       Type = "Features"
	TypeTesting        Type = "Testing"
	TypeSecurity       Type = "Security"
	TypeDocumentation  Type = "Documentation"
	TypeDevOps         Type = "DevOps"
	TypePolish         Type = "Polish"

	// TypeAll is a hard-dependency marker matching any phase
	TypeAll Type = "all"
)

// Types lists every concrete phase type
var Types = []Type{
	TypeSetup, TypeDatabase, TypeInfrastructure, TypeAuth, TypeAPI,
	TypeBusinessLogic, TypeFrontend, TypeFeatures, TypeTesting,
	TypeSecurity, TypeDocumentation, TypeDevOps, TypePolish,
}

// ParseType matches a declared type name case-insensitively.
// Spaces, dashes and underscores are interchangeable ("business-logic").
func ParseType(s string) (Type, bool) {
	norm := normalizeTypeName(s)
	for _, t := range Types {
		if normalizeTypeName(string(t)) == norm {
			return t, true
		}
	}
	return TypeNone, false
}

func normalizeTypeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '_' {
			return -1
		}
		return r
	}, s)
}

// KeywordRule maps a keyword set to a phase type. A single-word keyword
// must equal a whole word of the name unless it ends in "*", which makes it
// a stem ("secur*" matches "Secure" and "Security"). A multi-word keyword
// must appear as a phrase.
type KeywordRule struct {
	Type     Type
	Keywords []string
}

// DefaultKeywordRules returns the prioritized inference rules. Order
// matters: "Authentication Service" is Auth, not Business Logic.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{TypeSetup, []string{"setup", "foundation", "foundations", "scaffold", "scaffolding", "bootstrap", "bootstrapping",
			"init", "initialize", "initialization", "project structure"}},
		{TypeDatabase, []string{"database", "databases", "db", "schema", "schemas", "migration", "migrations",
			"data model", "data models", "persistence"}},
		{TypeDevOps, []string{"devops", "deploy", "deployment", "deployments", "ci/cd", "cicd", "release", "releases", "monitoring"}},
		{TypeInfrastructure, []string{"infrastructure", "infra", "docker", "kubernetes", "k8s", "cloud", "hosting"}},
		{TypeAuth, []string{"auth", "authentication", "authorization", "login", "identity", "oauth", "sso", "session", "sessions"}},
		{TypeSecurity, []string{"security", "secure", "hardening", "audit", "audits", "compliance"}},
		{TypeAPI, []string{"api", "apis", "endpoint", "endpoints", "graphql", "grpc", "backend"}},
		{TypeBusinessLogic, []string{"business", "domain", "core logic", "rules engine"}},
		{TypeFrontend, []string{"frontend", "front end", "ui", "user interface", "dashboard", "dashboards", "web app", "screens"}},
		{TypeTesting, []string{"test", "tests", "testing", "qa", "quality assurance", "e2e"}},
		{TypeDocumentation, []string{"documentation", "docs", "readme", "guide", "guides"}},
		{TypePolish, []string{"polish", "cleanup", "refinement", "final"}},
		{TypeFeatures, []string{"feature", "features"}},
	}
}

// InferType returns the type of the first rule with a matching keyword
func InferType(name string, rules []KeywordRule) Type {
	words := nameWords(name)
	if len(words) == 0 {
		return TypeNone
	}
	phrase := " " + strings.Join(words, " ") + " "

	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if matchKeyword(strings.ToLower(strings.TrimSpace(kw)), words, phrase) {
				return rule.Type
			}
		}
	}
	return TypeNone
}

func matchKeyword(kw string, words []string, phrase string) bool {
	if kw == "" {
		return false
	}
	if strings.Contains(kw, " ") {
		return strings.Contains(phrase, " "+kw+" ")
	}
	stem, isStem := strings.CutSuffix(kw, "*")
	for _, w := range words {
		if w == kw || (isStem && stem != "" && strings.HasPrefix(w, stem)) {
			return true
		}
	}
	return false
}

// nameWords lowercases a name and splits it on anything that is not a
// letter, digit or slash ("CI/CD" stays one word).
func nameWords(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/'
	})
}
