// Package merge folds a duplicate contact record into its master without
// destroying data: empty master fields are filled, channel values are placed
// in free slots and tag/group lists are unioned.
package merge

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// DefaultEmailSlots and DefaultPhoneSlots list the columns that receive
// emails and phones copied from a duplicate, in fill order.
var (
	DefaultEmailSlots = []string{"Personal Email", "Email", "Work Email", "Email 2", "Email 3", "Other Email"}
	DefaultPhoneSlots = []string{"Mobile Phone", "Phone", "Home Phone", "Work Phone", "Phone 2", "Phone 3", "Other Phone"}
)

// Engine plans and applies merges.
type Engine struct {
	emailSlots []string
	phoneSlots []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmailSlots overrides the email slot order.
func WithEmailSlots(slots ...string) Option {
	return func(e *Engine) { e.emailSlots = slots }
}

// WithPhoneSlots overrides the phone slot order.
func WithPhoneSlots(slots ...string) Option {
	return func(e *Engine) { e.phoneSlots = slots }
}

// New creates a merge engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		emailSlots: DefaultEmailSlots,
		phoneSlots: DefaultPhoneSlots,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Plan is the outcome of merging one duplicate into a master.
type Plan struct {
	Patch       model.Patch
	EmailsAdded int
	PhonesAdded int
}

// Empty reports whether the merge would change nothing.
func (p Plan) Empty() bool {
	return p.Patch.Empty()
}

// Plan computes the changes merging dup into master would make. Neither
// record is modified. Non-empty master fields are never touched.
func (e *Engine) Plan(master, dup *model.Record) Plan {
	var plan Plan
	filled := make(map[string]struct{})
	isFree := func(field string) bool {
		if _, ok := filled[field]; ok {
			return false
		}
		return master.IsEmpty(field)
	}
	set := func(field, value, reason string) {
		filled[field] = struct{}{}
		plan.Patch.Set(field, master.Get(field), value, reason)
	}

	have := make(map[string]struct{})
	for _, em := range normalize.ExtractEmails(master) {
		have[em] = struct{}{}
	}
	for _, em := range normalize.ExtractEmails(dup) {
		if _, ok := have[em]; ok {
			continue
		}
		slot := firstFree(e.emailSlots, isFree)
		if slot == "" {
			zap.L().Debug("merge: no free email slot",
				zap.Int("master", master.ID),
				zap.String("email", em),
			)
			continue
		}
		have[em] = struct{}{}
		set(slot, em, fmt.Sprintf("Added email %s to %s from duplicate", em, slot))
		plan.EmailsAdded++
	}

	havePhones := make(map[string]struct{})
	for _, p := range normalize.ExtractPhones(master) {
		havePhones[p] = struct{}{}
	}
	for _, p := range normalize.ExtractPhones(dup) {
		if _, ok := havePhones[p]; ok {
			continue
		}
		slot := firstFree(e.phoneSlots, isFree)
		if slot == "" {
			zap.L().Debug("merge: no free phone slot",
				zap.Int("master", master.ID),
				zap.String("phone", p),
			)
			continue
		}
		havePhones[p] = struct{}{}
		formatted := normalize.FormatPhone(p)
		set(slot, formatted, fmt.Sprintf("Added phone %s to %s from duplicate", formatted, slot))
		plan.PhonesAdded++
	}

	for _, f := range dup.Fields() {
		if model.IsReservedField(f) || normalize.IsChannelField(f) {
			continue
		}
		v := strings.TrimSpace(dup.Get(f))
		if v == "" || !isFree(f) {
			continue
		}
		set(f, v, fmt.Sprintf("Added %s from duplicate", f))
	}

	for _, field := range []string{model.FieldTags, model.FieldGroups} {
		current := SplitList(master.Get(field))
		incoming := withoutReserved(SplitList(dup.Get(field)))
		union := UnionList(current, incoming)
		if len(union) == len(current) {
			continue
		}
		plan.Patch.Set(field, master.Get(field), JoinList(union),
			fmt.Sprintf("Merged %s from duplicate", strings.ToLower(field)))
	}

	return plan
}

// Merge plans and applies the merge of dup into master.
func (e *Engine) Merge(master, dup *model.Record) Plan {
	plan := e.Plan(master, dup)
	master.Apply(plan.Patch)
	return plan
}

func firstFree(slots []string, isFree func(string) bool) string {
	for _, s := range slots {
		if isFree(s) {
			return s
		}
	}
	return ""
}

func withoutReserved(tags []string) []string {
	out := tags[:0:0]
	for _, t := range tags {
		if strings.EqualFold(t, model.TagMerged) || strings.EqualFold(t, model.TagDuplicate) {
			continue
		}
		out = append(out, t)
	}
	return out
}
