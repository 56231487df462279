// Package batch runs per-record work over fixed-size slices with a
// cooperative yield and a cancellation check between slices.
package batch

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Defaults used when a Scheduler field is zero.
const (
	DefaultSliceSize = 1000
	DefaultThreshold = 2000
)

// Failure is a per-record error or panic caught at the slice boundary.
type Failure struct {
	Index int    `json:"index"`
	Stage string `json:"stage"`
	Err   error  `json:"-"`
}

// Error returns the failure message.
func (f Failure) Error() string {
	return fmt.Sprintf("%s: record %d: %v", f.Stage, f.Index, f.Err)
}

// Progress is reported after every completed slice.
type Progress struct {
	Stage     string
	Processed int
	Total     int
	Slice     int
	Slices    int
}

// Report summarizes one Run.
type Report struct {
	Stage           string    `json:"stage"`
	Total           int       `json:"total"`
	Processed       int       `json:"processed"`
	SlicesCompleted int       `json:"slices_completed"`
	SlicesTotal     int       `json:"slices_total"`
	Cancelled       bool      `json:"cancelled"`
	Failures        []Failure `json:"failures,omitempty"`
}

// Scheduler drives per-record work. Inputs at or below Threshold run as a
// single slice; larger inputs are cut into SliceSize pieces. Slicing only
// changes scheduling, never results.
type Scheduler struct {
	SliceSize  int
	Threshold  int
	Yield      func()
	OnProgress func(Progress)
}

// New returns a Scheduler with the given sizes and the default yield.
func New(sliceSize, threshold int) *Scheduler {
	return &Scheduler{SliceSize: sliceSize, Threshold: threshold}
}

func (s *Scheduler) sliceSize(n int) int {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if n <= threshold {
		return n
	}
	if s.SliceSize <= 0 {
		return DefaultSliceSize
	}
	return s.SliceSize
}

// Slices returns how many slices an input of n records is cut into.
func (s *Scheduler) Slices(n int) int {
	if n <= 0 {
		return 0
	}
	size := s.sliceSize(n)
	return (n + size - 1) / size
}

// Run calls fn for every index in [0, n) in order. Errors and panics from fn
// are recorded as failures and do not stop the run. ctx is checked before
// each slice; on cancellation the partial report is returned with the
// wrapped context error.
func (s *Scheduler) Run(ctx context.Context, stage string, n int, fn func(i int) error) (Report, error) {
	rep := Report{Stage: stage, Total: n, SlicesTotal: s.Slices(n)}
	if n <= 0 {
		return rep, nil
	}
	log := zap.L().With(zap.String("component", "batch"), zap.String("stage", stage))
	yield := s.Yield
	if yield == nil {
		yield = runtime.Gosched
	}
	size := s.sliceSize(n)

	for start := 0; start < n; start += size {
		if err := ctx.Err(); err != nil {
			rep.Cancelled = true
			log.Warn("batch cancelled",
				zap.Int("slices_completed", rep.SlicesCompleted),
				zap.Int("slices_total", rep.SlicesTotal),
			)
			return rep, eris.Wrapf(err, "batch: %s cancelled after %d of %d slices", stage, rep.SlicesCompleted, rep.SlicesTotal)
		}

		end := min(start+size, n)
		for i := start; i < end; i++ {
			if err := call(fn, i); err != nil {
				f := Failure{Index: i, Stage: stage, Err: err}
				rep.Failures = append(rep.Failures, f)
				log.Error("record failed", zap.Int("record", i), zap.Error(err))
			}
			rep.Processed++
		}
		rep.SlicesCompleted++

		if s.OnProgress != nil {
			s.OnProgress(Progress{
				Stage:     stage,
				Processed: rep.Processed,
				Total:     n,
				Slice:     rep.SlicesCompleted,
				Slices:    rep.SlicesTotal,
			})
		}
		if end < n {
			yield()
		}
	}
	return rep, nil
}

func call(fn func(int) error, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("batch: panic: %v", r)
		}
	}()
	return fn(i)
}
