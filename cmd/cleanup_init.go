package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cleanup/internal/aiclassify"
	"github.com/sells-group/crm-cleanup/internal/batch"
	"github.com/sells-group/crm-cleanup/internal/classify"
	"github.com/sells-group/crm-cleanup/internal/config"
	"github.com/sells-group/crm-cleanup/internal/engine"
	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/resilience"
	"github.com/sells-group/crm-cleanup/internal/store"
	anthropicpkg "github.com/sells-group/crm-cleanup/pkg/anthropic"
)

// cleanupEnv holds everything the run and serve commands share.
type cleanupEnv struct {
	Rules     classify.Rules
	SliceSize int
	Threshold int
	Store     store.Store         // nil when history is disabled
	Refiner   *aiclassify.Refiner // nil when AI is disabled
}

// Close releases resources held by the environment.
func (ce *cleanupEnv) Close() {
	if ce.Store != nil {
		_ = ce.Store.Close()
	}
}

// initCleanup loads rules, opens the store and builds the optional AI
// refiner. Callers should defer env.Close().
func initCleanup(ctx context.Context, c *config.Config, mode string) (*cleanupEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	rules, err := loadRules(c.Classifier)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}

	env := &cleanupEnv{
		Rules:     rules,
		SliceSize: c.Engine.SliceSize,
		Threshold: c.Engine.LargeInputThreshold,
		Store:     st,
	}
	if c.AI.Enabled {
		env.Refiner = newRefiner(c.AI)
	}
	return env, nil
}

func loadRules(cc config.ClassifierConfig) (classify.Rules, error) {
	rules := classify.DefaultRules()
	if cc.RulesPath != "" {
		r, err := classify.LoadRules(cc.RulesPath)
		if err != nil {
			return classify.Rules{}, err
		}
		rules = r
	}
	if cc.AgentThreshold > 0 {
		rules.AgentThreshold = cc.AgentThreshold
	}
	if cc.VendorThreshold > 0 {
		rules.VendorThreshold = cc.VendorThreshold
	}
	return rules, nil
}

func newRefiner(ac config.AIConfig) *aiclassify.Refiner {
	retry := resilience.DefaultRetryConfig()
	if ac.MaxAttempts > 0 {
		retry.MaxAttempts = ac.MaxAttempts
	}
	return aiclassify.New(anthropicpkg.NewClient(ac.Key, ac.BaseURL), aiclassify.Config{
		Model:             ac.Model,
		Timeout:           time.Duration(ac.TimeoutSecs) * time.Second,
		RequestsPerSecond: ac.RequestsPerSecond,
		Concurrency:       ac.Concurrency,
		Retry:             retry,
		BreakerThreshold:  ac.BreakerThreshold,
	})
}

// cleanupBatch is one unit of work: the loaded records plus the sold list.
type cleanupBatch struct {
	Records []*model.Record
	Inputs  []model.RunInput
	Sold    []string
}

type cleanupOptions struct {
	ChangedOnly bool
	AI          bool
	Output      string
}

// cleanupOutput is what a processed batch produced.
type cleanupOutput struct {
	RunID    string
	Result   *engine.Result
	Exported []*model.Record
	Columns  []string
}

// process runs the engine over b, applies AI suggestions when asked, and
// records the run in the store. A cancelled run still returns its partial
// output together with the error.
func (ce *cleanupEnv) process(ctx context.Context, b cleanupBatch, opts cleanupOptions) (*cleanupOutput, error) {
	log := zap.L().With(zap.String("component", "cleanup"))
	out := &cleanupOutput{}

	if ce.Store != nil {
		run, err := ce.Store.CreateRun(ctx, b.Inputs)
		if err != nil {
			return nil, eris.Wrap(err, "create run")
		}
		out.RunID = run.ID
	}

	classifier := classify.New(ce.Rules, classify.WithSoldProperties(b.Sold))
	eng := engine.New(classifier, engine.WithScheduler(batch.New(ce.SliceSize, ce.Threshold)))

	res, runErr := eng.Run(ctx, b.Records)
	if res == nil {
		ce.fail(ctx, out.RunID, runErr)
		return nil, runErr
	}
	out.Result = res

	if opts.AI && ce.Refiner != nil && runErr == nil {
		rep, err := ce.Refiner.Refine(ctx, res.Records)
		if rep != nil {
			n := aiclassify.Apply(eng, res, rep.Suggestions)
			log.Info("applied ai suggestions", zap.Int("suggestions", len(rep.Suggestions)), zap.Int("changed", n))
		}
		if err != nil {
			runErr = err
			res.Cancelled = true
		}
	}

	out.Exported = engine.ExportRecords(res.Records, engine.ExportOptions{ChangedOnly: opts.ChangedOnly})
	out.Columns = engine.Columns(out.Exported)

	if ce.Store != nil {
		summary := res.Summary()
		summary.Exported = len(out.Exported)
		summary.Output = opts.Output
		// Persist even when the caller's context is gone.
		pctx := context.WithoutCancel(ctx)
		if err := ce.Store.SaveAudit(pctx, out.RunID, res.AuditRows(out.RunID)); err != nil {
			log.Warn("save audit failed", zap.String("run_id", out.RunID), zap.Error(err))
		}
		if err := ce.Store.CompleteRun(pctx, out.RunID, summary); err != nil {
			log.Warn("complete run failed", zap.String("run_id", out.RunID), zap.Error(err))
		}
	}
	return out, runErr
}

func (ce *cleanupEnv) fail(ctx context.Context, runID string, err error) {
	if ce.Store == nil || runID == "" {
		return
	}
	if ferr := ce.Store.FailRun(context.WithoutCancel(ctx), runID, err); ferr != nil {
		zap.L().Warn("fail run failed", zap.String("run_id", runID), zap.Error(ferr))
	}
}
