package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferType(t *testing.T) {
	rules := DefaultKeywordRules()

	tests := []struct {
		name string
		want Type
	}{
		{"Project Setup", TypeSetup},
		{"Foundation", TypeSetup},
		{"Database Schema", TypeDatabase},
		{"Data Model and Migrations", TypeDatabase},
		{"Infrastructure", TypeInfrastructure},
		{"Authentication Service", TypeAuth},
		{"User Login", TypeAuth},
		{"REST API", TypeAPI},
		{"Business Rules", TypeBusinessLogic},
		{"Frontend Dashboard", TypeFrontend},
		{"User Interface", TypeFrontend},
		{"Core Features", TypeFeatures},
		{"Testing & QA", TypeTesting},
		{"Security Hardening", TypeSecurity},
		{"Documentation", TypeDocumentation},
		{"CI/CD Pipeline", TypeDevOps},
		{"Deployment", TypeDevOps},
		{"Final Polish", TypePolish},
		{"Initial Database Schema", TypeDatabase},
		{"Initial Data Model", TypeDatabase},
		{"Initialize Repository", TypeSetup},
		{"Testimonials Page", TypeNone},
		{"Unit Tests", TypeTesting},
		{"Authorization Rules", TypeAuth},
		{"Apiary Integration", TypeNone},
		{"Miscellaneous", TypeNone},
		{"", TypeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.name, rules))
		})
	}
}

func TestInferType_CustomRules(t *testing.T) {
	rules := []KeywordRule{{Type: TypePolish, Keywords: []string{"launch prep"}}}

	assert.Equal(t, TypePolish, InferType("Launch Prep", rules))
	assert.Equal(t, TypeNone, InferType("Launch", rules))
	assert.Equal(t, TypeNone, InferType("Database", rules))
}

func TestInferType_Stems(t *testing.T) {
	rules := []KeywordRule{{Type: TypeSecurity, Keywords: []string{"secur*"}}}

	assert.Equal(t, TypeSecurity, InferType("Secure Storage", rules))
	assert.Equal(t, TypeSecurity, InferType("Security Review", rules))
	assert.Equal(t, TypeNone, InferType("Insecure", rules))

	// without the star only the whole word matches
	rules = []KeywordRule{{Type: TypeSecurity, Keywords: []string{"secur"}}}
	assert.Equal(t, TypeNone, InferType("Security Review", rules))
	assert.Equal(t, TypeNone, InferType("Anything", []KeywordRule{{Type: TypeSecurity, Keywords: []string{"*"}}}))
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
		ok   bool
	}{
		{"Database", TypeDatabase, true},
		{"api", TypeAPI, true},
		{"business-logic", TypeBusinessLogic, true},
		{"Business_Logic", TypeBusinessLogic, true},
		{" devops ", TypeDevOps, true},
		{"all", TypeNone, false},
		{"marketing", TypeNone, false},
	}

	for _, tt := range tests {
		got, ok := ParseType(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
