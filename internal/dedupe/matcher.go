// Package dedupe finds records that refer to the same person using a greedy,
// input-ordered match-key index and folds duplicates into their master.
package dedupe

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/crm-cleanup/internal/matchkey"
	"github.com/sells-group/crm-cleanup/internal/merge"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// OutcomeKind describes what the matcher decided for one record.
type OutcomeKind string

const (
	// OutcomeSkipped means the record had no usable identity or was already
	// folded into a master by an earlier run. Nothing was registered.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeUnique means no earlier record shared a key.
	OutcomeUnique OutcomeKind = "unique"
	// OutcomeDistinct means a key collided but the different-name guard kept
	// the records apart.
	OutcomeDistinct OutcomeKind = "distinct"
	// OutcomeMerged means the record and an earlier one were resolved into a
	// master and a duplicate.
	OutcomeMerged OutcomeKind = "merged"
)

// Outcome is the result of processing one record. Patches are keyed by
// record ID and must be applied (see Apply) before the next record is
// processed.
type Outcome struct {
	Kind OutcomeKind

	// Record is the record passed to Process; Existing is the earlier record
	// it collided with, if any.
	Record   *model.Record
	Existing *model.Record

	// Master is the record the incoming one was finally folded into, and
	// Duplicate the first record tagged as a duplicate.
	Master    *model.Record
	Duplicate *model.Record
	Key       matchkey.Key

	Patches map[int]model.Patch

	// Duplicates counts records tagged CRMDuplicate by this outcome.
	Duplicates  int
	EmailsAdded int
	PhonesAdded int
	// Masters is the net change in the number of masters created this run.
	// It goes negative when an earlier master is outranked and demoted.
	Masters int
	// Family is set when a distinct pair was annotated as potential family.
	Family bool

	involved []*model.Record
	views    map[int]*model.Record
}

// Apply writes the outcome's patches onto the involved records.
func (o Outcome) Apply() {
	for _, r := range o.involved {
		if p, ok := o.Patches[r.ID]; ok {
			r.Apply(p)
		}
	}
}

// Involved returns the records the outcome patches, in the order they were
// first touched.
func (o Outcome) Involved() []*model.Record {
	return o.involved
}

func (o *Outcome) addPatch(r *model.Record, p model.Patch) {
	if p.Empty() {
		return
	}
	if o.Patches == nil {
		o.Patches = make(map[int]model.Patch, 2)
	}
	cur, ok := o.Patches[r.ID]
	if !ok {
		o.involved = append(o.involved, r)
	}
	cur.Extend(p)
	o.Patches[r.ID] = cur
	if v, ok := o.views[r.ID]; ok {
		v.Apply(p)
	}
}

// view returns r as it will look once the outcome is applied.
func (o *Outcome) view(r *model.Record) *model.Record {
	if v, ok := o.views[r.ID]; ok {
		return v
	}
	if o.views == nil {
		o.views = make(map[int]*model.Record, 2)
	}
	v := r.Clone()
	if p, ok := o.Patches[r.ID]; ok {
		v.Apply(p)
	}
	o.views[r.ID] = v
	return v
}

// Matcher holds the seen index for one run. It is not safe for concurrent
// use; records must be processed in input order.
type Matcher struct {
	index   map[string]*model.Record
	order   map[int]int
	dupOf   map[int]*model.Record
	members map[int][]*model.Record
	masters map[int]struct{}
	merger  *merge.Engine
	log     *zap.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMergeEngine sets the engine used to fold duplicates into masters.
func WithMergeEngine(e *merge.Engine) Option {
	return func(m *Matcher) { m.merger = e }
}

// New creates a Matcher with an empty index.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		index:   make(map[string]*model.Record),
		order:   make(map[int]int),
		dupOf:   make(map[int]*model.Record),
		members: make(map[int][]*model.Record),
		masters: make(map[int]struct{}),
		log:     zap.L().With(zap.String("component", "matcher")),
	}
	for _, o := range opts {
		o(m)
	}
	if m.merger == nil {
		m.merger = merge.New()
	}
	return m
}

// Len returns the number of registered keys.
func (m *Matcher) Len() int {
	return len(m.index)
}

// live follows duplicate links to the record currently standing as master.
func (m *Matcher) live(r *model.Record) *model.Record {
	for {
		next, ok := m.dupOf[r.ID]
		if !ok {
			return r
		}
		r = next
	}
}

// pick orders two records into master and duplicate: higher source rank
// wins, then the record seen first.
func (m *Matcher) pick(a, b *model.Record) (master, dup *model.Record) {
	if ra, rb := a.Source.Rank(), b.Source.Rank(); ra != rb {
		if ra > rb {
			return a, b
		}
		return b, a
	}
	if m.order[a.ID] <= m.order[b.ID] {
		return a, b
	}
	return b, a
}

// Process matches rec against every record seen so far. Records are never
// modified here; the returned outcome carries the patches.
func (m *Matcher) Process(rec *model.Record) Outcome {
	out := Outcome{Kind: OutcomeSkipped, Record: rec}

	if merge.ContainsTag(rec.Get(model.FieldTags), model.TagDuplicate) {
		return out
	}

	keys, _ := matchkey.ForRecord(rec)
	if len(keys) == 0 {
		return out
	}
	m.order[rec.ID] = len(m.order)

	var existing *model.Record
	var hit matchkey.Key
	for _, k := range keys {
		if e, ok := m.index[k.String()]; ok {
			if e = m.live(e); e != rec {
				existing, hit = e, k
				break
			}
		}
	}

	if existing == nil {
		for _, k := range keys {
			m.index[k.String()] = rec
		}
		out.Kind = OutcomeUnique
		return out
	}

	out.Existing = existing
	out.Key = hit

	if differentPeople(existing, rec, hit.Kind) {
		m.distinct(&out, keys)
		return out
	}

	m.merge(&out, keys)
	return out
}

func (m *Matcher) distinct(out *Outcome, keys []matchkey.Key) {
	rec, existing := out.Record, out.Existing
	out.Kind = OutcomeDistinct

	if hit := out.Key; hit.Kind.Channel() && sameFamily(existing, rec) {
		channel := "email"
		if hit.Kind == matchkey.KindPhone || hit.Kind == matchkey.KindNamePhone {
			channel = "phone"
		}
		var rp, ep model.Patch
		rp.Note(fmt.Sprintf("Potential family member of %s (shared %s)", normalize.DisplayName(existing), channel))
		ep.Note(fmt.Sprintf("Potential family member of %s (shared %s)", normalize.DisplayName(rec), channel))
		out.addPatch(rec, rp)
		out.addPatch(existing, ep)
		out.Family = true
		m.log.Info("potential family member",
			zap.Int("record", rec.ID),
			zap.Int("existing", existing.ID),
			zap.String("key", hit.String()),
		)
	}

	for _, k := range keys {
		if _, ok := m.index[k.String()]; !ok {
			m.index[k.String()] = rec
		}
	}
}

func (m *Matcher) merge(out *Outcome, keys []matchkey.Key) {
	out.Kind = OutcomeMerged
	master, dup := m.pick(out.Existing, out.Record)
	out.Duplicate = dup

	m.fold(out, master, dup, out.Key)
	master = m.settle(out, master)
	out.Master = master

	// The incoming record's own keys go to its master unless another live
	// record already holds them.
	for _, k := range keys {
		s := k.String()
		if owner, ok := m.index[s]; !ok || m.live(owner) == master {
			m.index[s] = master
		}
	}
}

// fold tags dup as a duplicate of master and merges its data in.
func (m *Matcher) fold(out *Outcome, master, dup *model.Record, key matchkey.Key) {
	dv, mv := out.view(dup), out.view(master)

	var mp, dp model.Patch
	tags := dv.Get(model.FieldTags)
	if next := merge.AddTag(merge.RemoveTag(tags, model.TagMerged), model.TagDuplicate); next != tags {
		dp.Set(model.FieldTags, tags, next,
			fmt.Sprintf("Tagged %s of %s (record %d, matched by %s)",
				model.TagDuplicate, normalize.DisplayName(mv), master.ID, key.Kind))
	}

	tags = mv.Get(model.FieldTags)
	if next := merge.AddTag(merge.RemoveTag(tags, model.TagDuplicate), model.TagMerged); next != tags {
		mp.Set(model.FieldTags, tags, next, "Tagged "+model.TagMerged)
	}
	out.addPatch(master, mp)

	plan := m.merger.Plan(out.view(master), dv)
	var np model.Patch
	np.Note(fmt.Sprintf("Merged duplicate %s (record %d)", normalize.DisplayName(dv), dup.ID))
	np.Extend(plan.Patch)
	out.addPatch(master, np)
	out.addPatch(dup, dp)

	out.Duplicates++
	out.EmailsAdded += plan.EmailsAdded
	out.PhonesAdded += plan.PhonesAdded

	if _, ok := m.masters[master.ID]; !ok {
		m.masters[master.ID] = struct{}{}
		out.Masters++
	}
	if _, ok := m.masters[dup.ID]; ok {
		delete(m.masters, dup.ID)
		out.Masters--
	}

	// Duplicates of a demoted master follow it to the new one.
	for _, d := range m.members[dup.ID] {
		var p model.Patch
		p.Note(fmt.Sprintf("Master moved to %s (record %d)", normalize.DisplayName(out.view(master)), master.ID))
		out.addPatch(d, p)
	}
	m.members[master.ID] = append(append(m.members[master.ID], m.members[dup.ID]...), dup)
	delete(m.members, dup.ID)
	m.dupOf[dup.ID] = master

	m.log.Debug("merged duplicate",
		zap.Int("master", master.ID),
		zap.Int("duplicate", dup.ID),
		zap.String("key", key.String()),
		zap.Int("emails_added", plan.EmailsAdded),
		zap.Int("phones_added", plan.PhonesAdded),
	)
}

// settle registers the master's keys after a merge. Merged-in emails and
// phones can produce keys another live record already holds; each such
// collision is decided now, with the same guard Process uses, so that
// matching the output again finds nothing new. It returns the final master.
func (m *Matcher) settle(out *Outcome, master *model.Record) *model.Record {
	apart := make(map[int]struct{})
	for {
		keys, _ := matchkey.ForRecord(out.view(master))

		var other *model.Record
		var hit matchkey.Key
		for _, k := range keys {
			s := k.String()
			owner, ok := m.index[s]
			if ok {
				owner = m.live(owner)
			}
			switch {
			case !ok || owner == master:
				m.index[s] = master
			case other != nil:
			default:
				if _, kept := apart[owner.ID]; !kept {
					other, hit = owner, k
				}
			}
		}
		if other == nil {
			return master
		}

		if differentPeople(out.view(other), out.view(master), hit.Kind) {
			apart[other.ID] = struct{}{}
			continue
		}

		m.log.Debug("merged record sharing a merged-in key",
			zap.Int("master", master.ID),
			zap.Int("other", other.ID),
			zap.String("key", hit.String()),
		)
		next, dup := m.pick(master, other)
		m.fold(out, next, dup, hit)
		master = next
	}
}
