package peephole

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/colorfulnotion/dexopt/ir"
	"github.com/colorfulnotion/dexopt/log"
)

const tracerName = "github.com/colorfulnotion/dexopt/peephole"

// Optimizer rewrites single method bodies. It is safe for concurrent use on distinct
// methods.
type Optimizer struct {
	matcher *Matcher
}

// NewOptimizer validates rules and binds them to resolver.
func NewOptimizer(rules []Rule, resolver ir.FieldResolver) (*Optimizer, error) {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	return &Optimizer{matcher: NewMatcher(rules, Env{Resolver: resolver})}, nil
}

// RunMethod makes one left-to-right scan over m's body, rewriting each match in place.
// After a rewrite scanning resumes right after the replacement, so replacements are never
// rescanned in the same call.
func (o *Optimizer) RunMethod(m *ir.Method) *Stats {
	st := NewStats()
	if m == nil || m.Code == nil {
		return st
	}
	code := m.Code
	st.Methods = 1
	st.Scanned = code.Len()
	if bad := code.CheckPairs(); len(bad) > 0 {
		st.MalformedPairs = len(bad)
		log.Debug(log.PeepholeModule, "unpaired move-result-pseudo", "method", m.String(), "err", code.VerifyPairs())
	}

	before := code.Len()
	for i := 0; i < code.Len(); {
		match, ok, err := o.matcher.MatchAt(code.Window(0, code.Len()), i)
		if err != nil {
			st.Inconsistencies++
			log.Warn(log.PeepholeModule, "rule skipped", "method", m.String(), "rule", match.Rule.Name, "pos", i, "err", err)
			i += match.Len
			continue
		}
		if !ok {
			i++
			continue
		}
		n, err := Rewrite(code, match)
		if err != nil {
			st.Inconsistencies++
			log.Warn(log.PeepholeModule, "rewrite aborted", "method", m.String(), "rule", match.Rule.Name, "pos", i, "err", err)
			i += match.Len
			continue
		}
		st.Applied[match.Rule.Name]++
		i += n
	}
	st.Removed = before - code.Len()
	return st
}

// Pass runs a rule set over every concrete method of a scope.
type Pass struct {
	Rules    []Rule
	Resolver ir.FieldResolver
	Workers  int // <= 0 means GOMAXPROCS
}

func (p *Pass) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Run scans each concrete method exactly once. Methods are independent: each worker writes
// only its own result slot and the totals are summed afterwards. Cancellation is observed
// between methods; the stats of methods already finished are returned with the error.
func (p *Pass) Run(ctx context.Context, scope ir.Scope) (*Stats, error) {
	opt, err := NewOptimizer(p.Rules, p.Resolver)
	if err != nil {
		return nil, err
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "peephole.Run")
	defer span.End()

	start := time.Now()
	methods := scope.Concrete()
	results := make([]*Stats, len(methods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())
	for i, m := range methods {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = opt.RunMethod(m)
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	total := NewStats()
	for _, r := range results {
		total.Merge(r)
	}
	span.SetAttributes(
		attribute.Int("peephole.methods", total.Methods),
		attribute.Int("peephole.scanned", total.Scanned),
		attribute.Int("peephole.rewrites", total.Total()),
		attribute.Int("peephole.removed", total.Removed),
		attribute.Int("peephole.inconsistencies", total.Inconsistencies),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return total, fmt.Errorf("peephole pass: %w", err)
	}
	elapsed := time.Since(start)
	log.Debug(log.DriverModule, "pass done", "methods", total.Methods, "rewrites", total.Total(), "elapsed", elapsed)
	log.Record(log.DriverModule, "dexpeep", "peephole.stats", total, elapsed)
	return total, nil
}

// RunUntilFixed repeats Run until a pass applies no rule or limit passes have run. It returns
// the accumulated stats and the number of passes run.
func (p *Pass) RunUntilFixed(ctx context.Context, scope ir.Scope, limit int) (*Stats, int, error) {
	if limit < 1 {
		limit = 1
	}
	total := NewStats()
	for n := 1; n <= limit; n++ {
		st, err := p.Run(ctx, scope)
		total.Merge(st)
		if err != nil {
			return total, n, err
		}
		if st.Total() == 0 {
			return total, n, nil
		}
	}
	return total, limit, nil
}
