// Package engine drives one cleanup run: duplicate matching and merging,
// then classification and group assignment, with a per-record audit trail.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cleanup/internal/batch"
	"github.com/sells-group/crm-cleanup/internal/classify"
	"github.com/sells-group/crm-cleanup/internal/dedupe"
	"github.com/sells-group/crm-cleanup/internal/groups"
	"github.com/sells-group/crm-cleanup/internal/merge"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// Stage names used in batch reports.
const (
	StageMatch    = "match"
	StageClassify = "classify"
)

// Engine runs the cleanup pipeline. An Engine holds no per-run state and may
// be reused.
type Engine struct {
	classifier *classify.Classifier
	merger     *merge.Engine
	sched      *batch.Scheduler
	log        *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler sets the batch scheduler.
func WithScheduler(s *batch.Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithMergeEngine sets the merge engine used by the matcher.
func WithMergeEngine(m *merge.Engine) Option {
	return func(e *Engine) { e.merger = m }
}

// New creates an Engine around classifier.
func New(classifier *classify.Classifier, opts ...Option) *Engine {
	e := &Engine{
		classifier: classifier,
		log:        zap.L().With(zap.String("component", "engine")),
	}
	for _, o := range opts {
		o(e)
	}
	if e.merger == nil {
		e.merger = merge.New()
	}
	if e.sched == nil {
		e.sched = batch.New(batch.DefaultSliceSize, batch.DefaultThreshold)
	}
	return e
}

// Result is the outcome of a run. Records are the input records, modified
// in place and in input order.
type Result struct {
	Records   []*model.Record
	Stats     model.Stats
	Audit     *model.AuditLog
	Reports   []batch.Report
	Notes     []string
	Cancelled bool
	Duration  time.Duration
}

// SlicesCompleted sums completed slices across stages.
func (r *Result) SlicesCompleted() int {
	n := 0
	for _, rep := range r.Reports {
		n += rep.SlicesCompleted
	}
	return n
}

// SlicesTotal sums planned slices across stages.
func (r *Result) SlicesTotal() int {
	n := 0
	for _, rep := range r.Reports {
		n += rep.SlicesTotal
	}
	return n
}

// Summary returns the persistable summary of the run.
func (r *Result) Summary() *model.RunSummary {
	return &model.RunSummary{
		Stats:           r.Stats,
		SlicesCompleted: r.SlicesCompleted(),
		SlicesTotal:     r.SlicesTotal(),
		Cancelled:       r.Cancelled,
		DurationMs:      r.Duration.Milliseconds(),
	}
}

func (r *Result) note(log *zap.Logger, msg string) {
	r.Notes = append(r.Notes, msg)
	log.Info(msg)
}

// ErrDuplicateID is returned by Run when two input records share an ID.
var ErrDuplicateID = eris.New("duplicate record id")

// Run processes records. Record IDs must be unique. Per-record failures are
// reported in the result and never abort the run. On cancellation the
// partial result is returned together with the context error; every record
// still carries a valid Changes Made value.
func (e *Engine) Run(ctx context.Context, records []*model.Record) (*Result, error) {
	start := time.Now()
	seen := make(map[int]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			return nil, eris.Wrapf(ErrDuplicateID, "engine: record %d", r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	res := &Result{Records: records, Audit: model.NewAuditLog()}
	res.Stats.TotalRecords = len(records)

	err := e.match(ctx, res)
	if err == nil {
		err = e.classify(ctx, res)
	}
	if err != nil {
		res.Cancelled = true
	}

	for _, rep := range res.Reports {
		for _, f := range rep.Failures {
			res.Stats.FailedRecords++
			res.Notes = append(res.Notes, f.Error())
		}
	}
	e.Finalize(res)
	res.Duration = time.Since(start)

	e.log.Info("run complete",
		zap.Int("records", res.Stats.TotalRecords),
		zap.Int("duplicates_tagged", res.Stats.DuplicatesTagged),
		zap.Int("merged_records", res.Stats.MergedRecords),
		zap.Int("agents", res.Stats.Agents),
		zap.Int("vendors", res.Stats.Vendors),
		zap.Int("past_clients", res.Stats.PastClients),
		zap.Int("changed_records", res.Stats.ChangedRecords),
		zap.Int("failed_records", res.Stats.FailedRecords),
		zap.Bool("cancelled", res.Cancelled),
		zap.Duration("duration", res.Duration),
	)
	if err != nil {
		return res, eris.Wrap(err, "engine: run")
	}
	return res, nil
}

func (e *Engine) match(ctx context.Context, res *Result) error {
	matcher := dedupe.New(dedupe.WithMergeEngine(e.merger))
	rep, err := e.sched.Run(ctx, StageMatch, len(res.Records), func(i int) error {
		o := matcher.Process(res.Records[i])
		o.Apply()
		for _, r := range o.Involved() {
			res.Audit.Record(r.ID, o.Patches[r.ID])
		}

		switch o.Kind {
		case dedupe.OutcomeMerged:
			res.Stats.DuplicatesTagged += o.Duplicates
			res.Stats.EmailsAdded += o.EmailsAdded
			res.Stats.PhonesAdded += o.PhonesAdded
			res.Stats.MergedRecords += o.Masters
		case dedupe.OutcomeDistinct:
			if o.Family {
				res.Stats.PotentialFamily++
				res.note(e.log, fmt.Sprintf("record %d (%s): potential family member of record %d (%s)",
					o.Record.ID, normalize.DisplayName(o.Record), o.Existing.ID, normalize.DisplayName(o.Existing)))
			}
		}
		return nil
	})
	res.Reports = append(res.Reports, rep)
	return err
}

func (e *Engine) classify(ctx context.Context, res *Result) error {
	rep, err := e.sched.Run(ctx, StageClassify, len(res.Records), func(i int) error {
		rec := res.Records[i]
		cres := e.classifier.Classify(rec)
		p := e.categoryPatch(rec, cres)
		p.Extend(groups.Assign(rec, cres))
		if cres.Override != "" {
			p.Note(cres.Override)
			res.note(e.log, fmt.Sprintf("record %d (%s): %s", rec.ID, normalize.DisplayName(rec), cres.Override))
		}
		rec.Apply(p)
		res.Audit.Record(rec.ID, p)
		return nil
	})
	res.Reports = append(res.Reports, rep)
	return err
}

func (e *Engine) categoryPatch(rec *model.Record, cres classify.Result) model.Patch {
	var p model.Patch
	old := rec.Get(model.FieldCategory)
	next := string(cres.Category)
	switch {
	case old == next:
	case old == "" && cres.Category == model.CategoryContact:
		p.SetQuiet(model.FieldCategory, old, next)
	case cres.Override != "":
		p.Set(model.FieldCategory, old, next, fmt.Sprintf("Category set to %s (Past Client)", next))
	default:
		p.Set(model.FieldCategory, old, next, fmt.Sprintf("Category set to %s (%s)", next, cres.Reason()))
	}
	return p
}

// ApplyCategory moves rec to cat and recomputes its groups, recording the
// change in res. Past Clients and duplicates are left alone. It reports
// whether anything changed. Call Finalize once after the last change.
func (e *Engine) ApplyCategory(res *Result, rec *model.Record, cat model.Category, reason string) bool {
	if merge.ContainsTag(rec.Get(model.FieldTags), model.TagDuplicate) {
		return false
	}
	cres := e.classifier.Classify(rec)
	if cres.PastClient || rec.Get(model.FieldCategory) == string(cat) {
		return false
	}
	cres.Category = cat
	cres.ShortCircuit = reason

	p := e.categoryPatch(rec, cres)
	p.Extend(groups.Assign(rec, cres))
	if p.Empty() {
		return false
	}
	rec.Apply(p)
	res.Audit.Record(rec.ID, p)
	return true
}

// Finalize writes Changes Made on every record and recomputes the tallies
// that depend on final record state.
func (e *Engine) Finalize(res *Result) {
	s := &res.Stats
	s.Agents, s.Vendors, s.PastClients, s.Leads, s.ChangedRecords = 0, 0, 0, 0, 0
	for _, rec := range res.Records {
		rec.Set(model.FieldChangesMade, res.Audit.ChangesMade(rec.ID))
		if res.Audit.Changed(rec.ID) {
			s.ChangedRecords++
		}
		if merge.ContainsTag(rec.Get(model.FieldTags), model.TagDuplicate) {
			continue
		}
		switch model.Category(rec.Get(model.FieldCategory)) {
		case model.CategoryAgent:
			s.Agents++
		case model.CategoryVendor:
			s.Vendors++
		}
		g := merge.SplitList(rec.Get(model.FieldGroups))
		if merge.HasTag(g, model.GroupPastClients) {
			s.PastClients++
		}
		if merge.HasTag(g, model.GroupLeads) {
			s.Leads++
		}
	}
}
