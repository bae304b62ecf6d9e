// Package compiler turns a raw schema document into a paged result. It is
// the single entry point transports call.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/atlekbai/query_forge/internal/dynval"
	"github.com/atlekbai/query_forge/internal/edition"
	"github.com/atlekbai/query_forge/internal/fragment"
	"github.com/atlekbai/query_forge/internal/logging"
	"github.com/atlekbai/query_forge/internal/metrics"
	"github.com/atlekbai/query_forge/internal/query"
	"github.com/atlekbai/query_forge/internal/result"
	"github.com/atlekbai/query_forge/internal/schema"
	"github.com/atlekbai/query_forge/internal/source"
	"github.com/atlekbai/query_forge/internal/store"
	"github.com/atlekbai/query_forge/internal/telemetry"
)

// Request is the per-call context of an execution.
type Request struct {
	Page           int
	Preview        bool
	CanReadPrivate bool
	Env            dynval.Env
}

// Deps are the collaborators of a Compiler. Metrics and Log may be nil.
type Deps struct {
	Decoder  *schema.Decoder
	Registry *fragment.Registry
	Router   *source.Router
	Gate     edition.Gate
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

type Compiler struct {
	decoder  *schema.Decoder
	registry *fragment.Registry
	router   *source.Router
	gate     edition.Gate
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(d Deps) *Compiler {
	return &Compiler{
		decoder:  d.Decoder,
		registry: d.Registry,
		router:   d.Router,
		gate:     d.Gate,
		metrics:  d.Metrics,
		log:      logging.OrNop(d.Log),
	}
}

// Registry returns the fragment registry record executions lease from.
func (c *Compiler) Registry() *fragment.Registry { return c.registry }

// Prepare decodes raw and compiles it to Params. Only an undecodable
// document is an error; other problems are logged and compiled around.
func (c *Compiler) Prepare(raw []byte, req Request) (*query.Params, error) {
	m, err := c.decoder.Decode(raw)
	if err != nil {
		return nil, err
	}
	env := req.Env
	if env == nil {
		env = dynval.StaticEnv{}
	}
	resolver := dynval.New(env, c.gate)

	m = resolveIDLists(m, resolver)
	m, _ = resolver.Walk(m, schema.IDListKeys...).(map[string]any)

	doc, err := schema.FromMap(m)
	if err != nil {
		c.log.Debug("schema problems", zap.Error(err))
	}
	params, err := query.Compile(doc, query.Options{
		Pro:            c.gate.Pro(),
		Page:           req.Page,
		Preview:        req.Preview,
		ViewerID:       env.ViewerID(),
		CanReadPrivate: req.CanReadPrivate,
	})
	if err != nil {
		c.log.Debug("compile problems", zap.Error(err))
	}
	return params, nil
}

// resolveIDLists resolves the include/exclude ID lists and stores them as
// concrete lists on a copy of m, so the general pass leaves them alone.
func resolveIDLists(m map[string]any, r *dynval.Resolver) map[string]any {
	ie, ok := m[schema.KeyIncludeExcl].(map[string]any)
	if !ok {
		return m
	}
	ie = maps.Clone(ie)
	for _, key := range schema.IDListKeys {
		v, ok := ie[key]
		if !ok {
			continue
		}
		ids := schema.ParseIDList(r.Walk(v))
		list := make([]any, len(ids))
		for i, id := range ids {
			list[i] = id
		}
		ie[key] = list
	}
	out := maps.Clone(m)
	out[schema.KeyIncludeExcl] = ie
	return out
}

// GetQuery executes raw and never fails: every problem ends in the
// canonical empty result. Fragments installed for the execution are
// released on every path.
func (c *Compiler) GetQuery(ctx context.Context, raw []byte, req Request) (out *result.Wrapper) {
	ctx, span := telemetry.Tracer().Start(ctx, "compiler.GetQuery")
	defer span.End()

	kind := ""
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("query execution panicked", zap.Any("panic", rec), zap.Stack("stack"))
			c.metrics.Execution(kind, metrics.OutcomeError)
			out = result.Empty()
		}
	}()

	params, err := c.Prepare(raw, req)
	if err != nil {
		c.log.Debug("undecodable schema", zap.Error(err))
		c.metrics.Execution(kind, metrics.OutcomeInvalid)
		return result.Empty()
	}
	src, err := source.FromParams(params)
	if err != nil {
		c.log.Debug("unknown source", zap.Error(err))
		c.metrics.Execution(kind, metrics.OutcomeInvalid)
		return result.Empty()
	}
	kind = string(src.Kind())
	span.SetAttributes(attribute.String("queryforge.source", kind))

	var frags store.Fragments
	if _, ok := src.(source.Record); ok {
		lease := c.registry.Lease()
		defer lease.Release()
		c.install(lease, params)
		frags = lease
	}

	w, err := c.router.Dispatch(ctx, src, frags)
	switch {
	case errors.Is(err, source.ErrGated):
		c.metrics.Execution(kind, metrics.OutcomeGated)
		return w
	case err != nil:
		c.log.Warn("query execution failed", zap.String("source", kind), zap.Error(err))
		c.metrics.Execution(kind, metrics.OutcomeError)
		return result.Empty()
	case w.Count() == 0:
		c.metrics.Execution(kind, metrics.OutcomeEmpty)
	default:
		c.metrics.Execution(kind, metrics.OutcomeOK)
	}
	return w
}

// install adds the execution's join and body fragments to lease. Joins
// whose identifiers do not survive sanitizing are dropped.
func (c *Compiler) install(lease *fragment.Lease, p *query.Params) {
	for _, j := range p.Joins {
		spec, ok := fragment.NewJoin(j)
		if !ok {
			c.log.Debug("join dropped", zap.String("table", j.Table), zap.String("alias", j.Alias))
			continue
		}
		lease.AddJoin(spec)
	}
	for _, m := range p.Native.Body {
		spec, ok := fragment.NewWhere(m)
		if !ok {
			continue
		}
		lease.AddWhere(spec)
	}
}

// RecordSQL renders the list query a record document compiles to, without
// running it. It is the dry-run view of GetQuery.
func (c *Compiler) RecordSQL(raw []byte, req Request) (string, []any, error) {
	params, err := c.Prepare(raw, req)
	if err != nil {
		return "", nil, err
	}
	src, err := source.FromParams(params)
	if err != nil {
		return "", nil, err
	}
	if _, ok := src.(source.Record); !ok {
		return "", nil, fmt.Errorf("source %q does not compile to SQL", src.Kind())
	}
	lease := c.registry.Lease()
	defer lease.Release()
	c.install(lease, params)
	return store.BuildRecordList(params, lease)
}
