// Package aiclassify asks a language model to categorize contacts the
// heuristic classifier could not place. It runs after the engine, never
// inside it, and only ever suggests a category.
package aiclassify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/crm-cleanup/internal/merge"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
	"github.com/sells-group/crm-cleanup/internal/resilience"
	"github.com/sells-group/crm-cleanup/pkg/anthropic"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-haiku-4-5-20251001"

const systemPrompt = `You categorize contacts in a real estate agent's CRM.
Answer with a single JSON object and nothing else:
{"category": "Agent" | "Vendor" | null, "reason": "<short reason>"}
Agent: a real estate agent, broker, or realtor.
Vendor: a business that serves real estate transactions (title, escrow, lender, inspector, attorney, contractor, stager, photographer, insurance).
null: a private person, or not enough information to decide.`

// Config controls the refiner.
type Config struct {
	Model             string
	MaxTokens         int64
	Timeout           time.Duration
	RequestsPerSecond float64
	Concurrency       int
	Retry             resilience.RetryConfig
	BreakerThreshold  int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 128
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// Suggestion is a category proposed for one record.
type Suggestion struct {
	RecordID int            `json:"record_id"`
	Category model.Category `json:"category"`
	Reason   string         `json:"reason"`
}

// Report summarizes one Refine call.
type Report struct {
	Candidates  int
	Suggestions []Suggestion
	Failed      int
	Skipped     int
	Usage       anthropic.TokenUsage
}

// Refiner suggests categories for unresolved contacts.
type Refiner struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	breaker *resilience.Breaker
	log     *zap.Logger
}

// New creates a Refiner.
func New(client anthropic.Client, cfg Config) *Refiner {
	cfg = cfg.withDefaults()
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "classify")
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = shouldRetry
	}
	return &Refiner{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: resilience.NewBreaker(cfg.BreakerThreshold, time.Minute),
		log:     zap.L().With(zap.String("component", "aiclassify")),
	}
}

func shouldRetry(err error) bool {
	return resilience.IsTransient(err) || resilience.IsTransientHTTPStatus(anthropic.StatusCode(err))
}

// Eligible reports whether rec is a plain Contact the model may look at:
// not a duplicate, not a Past Client, and carrying at least one signal.
func Eligible(rec *model.Record) bool {
	if merge.ContainsTag(rec.Get(model.FieldTags), model.TagDuplicate) {
		return false
	}
	if model.Category(rec.Get(model.FieldCategory)) != model.CategoryContact {
		return false
	}
	if merge.HasTag(merge.SplitList(rec.Get(model.FieldGroups)), model.GroupPastClients) {
		return false
	}
	if !rec.IsEmpty("Company") || !rec.IsEmpty("Title") || !rec.IsEmpty("Job Title") {
		return true
	}
	for _, e := range normalize.ExtractEmails(rec) {
		if !normalize.IsPersonalDomain(normalize.EmailDomain(e)) {
			return true
		}
	}
	return false
}

// Refine asks the model about every eligible record. Individual failures are
// logged and counted; once the breaker opens the remaining records are
// skipped. Suggestions come back in record order. The error is non-nil only
// when ctx ends first, in which case the suggestions gathered so far are
// still returned.
func (r *Refiner) Refine(ctx context.Context, records []*model.Record) (*Report, error) {
	var candidates []*model.Record
	for _, rec := range records {
		if Eligible(rec) {
			candidates = append(candidates, rec)
		}
	}

	rep := &Report{Candidates: len(candidates)}
	found := make([]*Suggestion, len(candidates))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, rec := range candidates {
		i, rec := i, rec
		g.Go(func() error {
			if err := r.limiter.Wait(gctx); err != nil {
				return err
			}
			s, usage, err := r.classify(gctx, rec)

			mu.Lock()
			defer mu.Unlock()
			rep.Usage.Add(usage)
			switch {
			case err == nil:
				found[i] = s
			case eris.Is(err, resilience.ErrCircuitOpen):
				rep.Skipped++
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				rep.Failed++
				r.log.Warn("classification failed", zap.Int("record", rec.ID), zap.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()

	for _, s := range found {
		if s != nil {
			rep.Suggestions = append(rep.Suggestions, *s)
		}
	}
	rep.Usage.LogCost(r.cfg.Model, "aiclassify")
	r.log.Info("ai refinement complete",
		zap.Int("candidates", rep.Candidates),
		zap.Int("suggestions", len(rep.Suggestions)),
		zap.Int("failed", rep.Failed),
		zap.Int("skipped", rep.Skipped),
	)
	if err != nil {
		return rep, eris.Wrap(err, "aiclassify: refine")
	}
	return rep, nil
}

// classify asks about one record. A nil suggestion with nil error means the
// model had no opinion.
func (r *Refiner) classify(ctx context.Context, rec *model.Record) (*Suggestion, anthropic.TokenUsage, error) {
	req := anthropic.MessageRequest{
		Model:     r.cfg.Model,
		MaxTokens: r.cfg.MaxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: describe(rec)}},
	}

	resp, err := resilience.Call(ctx, r.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, r.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
			return r.client.CreateMessage(callCtx, req)
		})
	})
	if err != nil {
		return nil, anthropic.TokenUsage{}, err
	}

	cat, reason, err := ParseAnswer(resp.Text())
	if err != nil {
		return nil, resp.Usage, err
	}
	if cat == "" {
		return nil, resp.Usage, nil
	}
	return &Suggestion{RecordID: rec.ID, Category: cat, Reason: reason}, resp.Usage, nil
}

// describe renders the fields the model gets to see.
func describe(rec *model.Record) string {
	var b strings.Builder
	line := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	line("Name", normalize.DisplayName(rec))
	line("Company", rec.Get("Company"))
	line("Title", normalize.FirstValue(rec, "Title", "Job Title"))
	line("Emails", strings.Join(normalize.ExtractEmails(rec), ", "))
	line("Website", normalize.FirstValue(rec, "Website", "URL"))
	line("Tags", rec.Get(model.FieldTags))
	line("Notes", rec.Get("Notes"))
	return b.String()
}

type answer struct {
	Category *string `json:"category"`
	Reason   string  `json:"reason"`
}

// ParseAnswer extracts the category from a model reply. A null, unknown, or
// Contact category yields an empty category and no error.
func ParseAnswer(text string) (model.Category, string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", "", eris.Errorf("aiclassify: no JSON object in reply %q", text)
	}

	var a answer
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return "", "", eris.Wrap(err, "aiclassify: parse reply")
	}
	if a.Category == nil {
		return "", "", nil
	}
	cat, ok := model.ParseCategory(*a.Category)
	if !ok || cat == model.CategoryContact {
		return "", "", nil
	}
	reason := strings.TrimSpace(a.Reason)
	if reason == "" {
		reason = "model suggestion"
	}
	return cat, "AI: " + reason, nil
}
