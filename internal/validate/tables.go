package validate

import "github.com/felixgeelhaar/phaseguard/internal/phase"

// Tables holds the ordering data the engine applies. Values are built
// fresh by DefaultTables so callers can alter a copy without touching
// anyone else's.
type Tables struct {
	// Keywords infers a phase type from its name, first match wins
	Keywords []phase.KeywordRule

	// Canonical is the advisory position of each phase type
	Canonical map[phase.Type]int

	// HardDependencies lists the types that must complete before a type.
	// phase.TypeAll is always satisfied.
	HardDependencies map[phase.Type][]phase.Type

	// EarlyThreshold is how many positions before its canonical slot a
	// phase may sit before EARLY_PHASE fires
	EarlyThreshold int
}

// DefaultTables returns the standard canonical order and hard dependencies
func DefaultTables() Tables {
	return Tables{
		Keywords: phase.DefaultKeywordRules(),
		Canonical: map[phase.Type]int{
			phase.TypeSetup:          1,
			phase.TypeDatabase:       2,
			phase.TypeInfrastructure: 3,
			phase.TypeAuth:           4,
			phase.TypeAPI:            5,
			phase.TypeBusinessLogic:  6,
			phase.TypeFrontend:       7,
			phase.TypeFeatures:       8,
			phase.TypeTesting:        9,
			phase.TypeSecurity:       10,
			phase.TypeDocumentation:  11,
			phase.TypeDevOps:         12,
			phase.TypePolish:         13,
		},
		HardDependencies: map[phase.Type][]phase.Type{
			phase.TypeDatabase:       {phase.TypeSetup},
			phase.TypeInfrastructure: {phase.TypeSetup},
			phase.TypeAuth:           {phase.TypeDatabase},
			phase.TypeAPI:            {phase.TypeInfrastructure, phase.TypeAuth},
			phase.TypeBusinessLogic:  {phase.TypeAPI},
			phase.TypeFrontend:       {phase.TypeAPI},
			phase.TypeFeatures:       {phase.TypeBusinessLogic},
			phase.TypeTesting:        {phase.TypeFeatures},
			phase.TypeSecurity:       {phase.TypeAuth},
			phase.TypeDocumentation:  {phase.TypeFeatures},
			phase.TypeDevOps:         {phase.TypeTesting},
			phase.TypePolish:         {phase.TypeAll},
		},
		EarlyThreshold: 2,
	}
}
