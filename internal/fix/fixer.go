// Package fix applies mechanical corrections to route documents.
package fix

import (
	"fmt"
	"sort"
	"strconv"

	pgerrors "github.com/felixgeelhaar/phaseguard/internal/errors"
	"github.com/felixgeelhaar/phaseguard/internal/graph"
	"github.com/felixgeelhaar/phaseguard/internal/log"
	"github.com/felixgeelhaar/phaseguard/internal/phase"
	"github.com/felixgeelhaar/phaseguard/internal/validate"
)

// Action names the document edit a record describes
type Action string

const (
	ActionSetWave         Action = "set_wave"
	ActionAddPrerequisite Action = "add_prerequisite"
)

// Record is one document edit, applied or failed
type Record struct {
	Route  string        `json:"route" yaml:"route"`
	File   string        `json:"file" yaml:"file"`
	Action Action        `json:"action" yaml:"action"`
	Kind   validate.Kind `json:"kind" yaml:"kind"`
	Old    string        `json:"old,omitempty" yaml:"old,omitempty"`
	New    string        `json:"new" yaml:"new"`

	// Propagated marks a wave bump made to keep a downstream route
	// after a route that was itself bumped
	Propagated bool `json:"propagated,omitempty" yaml:"propagated,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	Err   error  `json:"-" yaml:"-"`
}

// String renders the record as a one-line change description
func (r Record) String() string {
	switch r.Action {
	case ActionSetWave:
		return fmt.Sprintf("%s: wave %s → %s", r.Route, r.Old, r.New)
	case ActionAddPrerequisite:
		return fmt.Sprintf("%s: prerequisites += %s", r.Route, r.New)
	default:
		return fmt.Sprintf("%s: %s", r.Route, r.Action)
	}
}

// Unfixable is an error the fixer will not touch, with the reason why
type Unfixable struct {
	Issue  validate.Issue `json:"issue" yaml:"issue"`
	Reason string         `json:"reason" yaml:"reason"`
}

// Report itemizes what a fix run did
type Report struct {
	Applied   []Record    `json:"applied" yaml:"applied"`
	Failed    []Record    `json:"failed" yaml:"failed"`
	Unfixable []Unfixable `json:"unfixable" yaml:"unfixable"`
	DryRun    bool        `json:"dry_run" yaml:"dry_run"`
}

// Changed reports whether any document was (or in a dry run would be) edited
func (r Report) Changed() bool {
	return len(r.Applied) > 0
}

// Fixer turns fixable issues into document edits
type Fixer struct {
	DryRun bool
	Logger *log.Logger
}

// New creates a fixer. A nil logger discards log output.
func New(dryRun bool, logger *log.Logger) *Fixer {
	if logger == nil {
		logger = log.Discard()
	}
	return &Fixer{DryRun: dryRun, Logger: logger}
}

// pending collects the edits for one document so it is written once
type pending struct {
	route   phase.Route
	edits   []func(*phase.Document) bool
	records []Record
}

// Apply plans and writes the fixes for the error issues of g. Warnings are
// advisory and ignored. A document that cannot be written is recorded as
// failed and the remaining documents are still processed.
func (f *Fixer) Apply(g *graph.Graph, issues []validate.Issue) Report {
	rep := Report{
		Applied:   []Record{},
		Failed:    []Record{},
		Unfixable: []Unfixable{},
		DryRun:    f.DryRun,
	}
	byFile := make(map[string]*pending)

	queue := func(r phase.Route, rec Record, edit func(*phase.Document) bool) {
		p, ok := byFile[r.SourceFile]
		if !ok {
			p = &pending{route: r}
			byFile[r.SourceFile] = p
		}
		rec.File = r.SourceFile
		p.edits = append(p.edits, edit)
		p.records = append(p.records, rec)
	}

	var waveIssues []validate.Issue
	for _, is := range issues {
		if is.Severity != validate.SeverityError {
			continue
		}
		switch is.Kind {
		case validate.KindInvalidWave:
			waveIssues = append(waveIssues, is)
		case validate.KindMissingHardDependency:
			f.planPrerequisite(g, is, &rep, queue)
		case validate.KindForwardDependency:
			rep.Unfixable = append(rep.Unfixable, Unfixable{
				Issue:  is,
				Reason: fmt.Sprintf("needs a decision: move %s earlier or %s later", is.Dependency, is.Route),
			})
		case validate.KindCircularDependency:
			rep.Unfixable = append(rep.Unfixable, Unfixable{
				Issue:  is,
				Reason: "needs a decision: remove one dependency from the loop",
			})
		}
	}
	if len(waveIssues) > 0 {
		f.planWaves(g, waveIssues, &rep, queue)
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		f.write(file, byFile[file], &rep)
	}

	sortRecords(rep.Applied)
	sortRecords(rep.Failed)
	return rep
}

// planWaves computes the smallest wave assignment that satisfies every
// internal edge, visiting routes in topological order so a bump carries to
// the routes after it in one pass. Waves only ever increase.
func (f *Fixer) planWaves(g *graph.Graph, issues []validate.Issue, rep *Report, queue func(phase.Route, Record, func(*phase.Document) bool)) {
	order, blocked := g.TopologicalOrder()

	isBlocked := make(map[string]bool, len(blocked))
	for _, id := range blocked {
		isBlocked[id] = true
	}
	flagged := make(map[string]bool)
	for _, is := range issues {
		if isBlocked[is.Route] {
			rep.Unfixable = append(rep.Unfixable, Unfixable{
				Issue:  is,
				Reason: "route is on or after a dependency cycle; break the cycle first",
			})
			continue
		}
		flagged[is.Route] = true
	}

	waves := make(map[string]int, len(order))
	for _, id := range order {
		r, _ := g.Route(id)
		w := r.Wave
		for _, dep := range g.Dependencies(id) {
			if dw, ok := waves[dep]; ok && dw+1 > w {
				w = dw + 1
			}
		}
		waves[id] = w
		if w == r.Wave {
			continue
		}

		wave := w
		queue(r, Record{
			Route:      r.ID,
			Action:     ActionSetWave,
			Kind:       validate.KindInvalidWave,
			Old:        strconv.Itoa(r.Wave),
			New:        strconv.Itoa(wave),
			Propagated: !flagged[r.ID],
		}, func(doc *phase.Document) bool { return doc.SetWave(wave) })
	}
}

func (f *Fixer) planPrerequisite(g *graph.Graph, is validate.Issue, rep *Report, queue func(phase.Route, Record, func(*phase.Document) bool)) {
	r, ok := g.Route(is.Route)
	if !ok {
		rep.Unfixable = append(rep.Unfixable, Unfixable{Issue: is, Reason: "route is not part of this run"})
		return
	}
	for _, declared := range r.RequiredTypes {
		if declared == is.RequiredType {
			rep.Unfixable = append(rep.Unfixable, Unfixable{
				Issue:  is,
				Reason: fmt.Sprintf("%s is already a declared prerequisite; reorder phases so phase %d runs before phase %d", is.RequiredType, is.RequiredPhase, is.Phase),
			})
			return
		}
	}

	entry := string(is.RequiredType)
	queue(r, Record{
		Route:  r.ID,
		Action: ActionAddPrerequisite,
		Kind:   validate.KindMissingHardDependency,
		New:    entry,
	}, func(doc *phase.Document) bool { return doc.AddPrerequisite(entry) })
}

// write applies the queued edits for one document. The document must
// still match the digest captured when it was first read.
func (f *Fixer) write(file string, p *pending, rep *Report) {
	fail := func(err error) {
		f.Logger.WithError(err).Warn("fix failed", "file", file, "route", p.route.ID)
		for _, rec := range p.records {
			rec.Err, rec.Error = err, err.Error()
			rep.Failed = append(rep.Failed, rec)
		}
	}

	doc, err := phase.ReadDocument(file)
	if err != nil {
		fail(pgerrors.Wrap(pgerrors.ErrCodeFixDocumentUnparseable, "cannot re-read "+file, err))
		return
	}
	if p.route.Digest != "" && doc.Digest() != p.route.Digest {
		fail(pgerrors.NewFixConcurrentChangeError(file))
		return
	}

	changed := false
	for _, edit := range p.edits {
		if edit(doc) {
			changed = true
		}
	}
	if !changed {
		return
	}

	if !f.DryRun {
		if err := doc.Save(); err != nil {
			fail(pgerrors.NewFixWriteError(file, err))
			return
		}
	}

	for _, rec := range p.records {
		f.Logger.Info("fix applied", "route", rec.Route, "action", string(rec.Action), "value", rec.New, "dry_run", f.DryRun)
		rep.Applied = append(rep.Applied, rec)
	}
}

func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return phase.CompareIDs(records[i].Route, records[j].Route) < 0
	})
}
