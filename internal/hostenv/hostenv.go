// Package hostenv supplies the execution context dynamic values are
// resolved against, backed by the content store.
package hostenv

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atlekbai/query_forge/internal/dynval"
	"github.com/atlekbai/query_forge/internal/logging"
)

const (
	// ViewerHeader carries the authenticated viewer ID, set by a trusted proxy.
	ViewerHeader = "X-QF-Viewer"
	// CapabilitiesHeader lists the viewer's capabilities, comma separated,
	// set by the same proxy.
	CapabilitiesHeader = "X-QF-Capabilities"
	// RecordParam names the request parameter holding the current record ID.
	RecordParam = "qf_record"

	CapPreview     = "preview"
	CapReadPrivate = "read_private"
)

// Lookups are the store queries the environment needs.
type Lookups interface {
	ViewerAttribute(ctx context.Context, userID int64, key string) (string, error)
	RecordOwner(ctx context.Context, recordID int64) (int64, error)
	RecordTerms(ctx context.Context, recordID int64, taxonomy string) ([]int64, error)
	TaxonomyExists(ctx context.Context, name string) (bool, error)
}

// Taxonomies is a cache of known taxonomies. *schema.Catalog satisfies it.
// Names it does not know are confirmed through Lookups.
type Taxonomies interface {
	TaxonomyExists(name string) bool
}

// Env is a request-scoped dynval.Env. Store lookups run lazily and failures
// resolve to empty values.
type Env struct {
	ctx        context.Context
	lookups    Lookups
	taxonomies Taxonomies
	log        *zap.Logger

	viewer int64
	record int64
	params map[string]string
	now    time.Time

	owner *int64
	attrs map[string]string
	terms map[string][]int64
	taxa  map[string]bool
}

var _ dynval.Env = (*Env)(nil)

// Request describes who is asking and about which record.
type Request struct {
	ViewerID       int64
	RecordID       int64
	Params         map[string]string
	Preview        bool
	CanReadPrivate bool
}

type noLookups struct{}

func (noLookups) ViewerAttribute(context.Context, int64, string) (string, error) { return "", nil }
func (noLookups) RecordOwner(context.Context, int64) (int64, error)              { return 0, nil }
func (noLookups) RecordTerms(context.Context, int64, string) ([]int64, error)    { return nil, nil }
func (noLookups) TaxonomyExists(context.Context, string) (bool, error)           { return false, nil }

// New builds the environment of one execution. A nil lookups resolves every
// store-backed value empty.
func New(ctx context.Context, lookups Lookups, taxonomies Taxonomies, req Request, log *zap.Logger) *Env {
	if lookups == nil {
		lookups = noLookups{}
	}
	return &Env{
		ctx:        ctx,
		lookups:    lookups,
		taxonomies: taxonomies,
		log:        logging.OrNop(log),
		viewer:     max(req.ViewerID, 0),
		record:     max(req.RecordID, 0),
		params:     req.Params,
		now:        time.Now(),
		attrs:      make(map[string]string),
		terms:      make(map[string][]int64),
		taxa:       make(map[string]bool),
	}
}

// RequestFromHTTP reads the viewer from ViewerHeader and the record and the
// remaining parameters from the query string.
func RequestFromHTTP(r *http.Request) Request {
	return RequestFromHeader(r.Header, r.URL.Query())
}

// RequestFromHeader builds a Request from trusted headers and request
// parameters.
func RequestFromHeader(h http.Header, params url.Values) Request {
	req := Request{Params: make(map[string]string, len(params))}
	req.ViewerID, _ = strconv.ParseInt(h.Get(ViewerHeader), 10, 64)
	for k, v := range params {
		if len(v) > 0 {
			req.Params[k] = v[0]
		}
	}
	req.RecordID, _ = strconv.ParseInt(req.Params[RecordParam], 10, 64)
	for _, c := range strings.Split(h.Get(CapabilitiesHeader), ",") {
		switch strings.TrimSpace(c) {
		case CapPreview:
			req.Preview = true
		case CapReadPrivate:
			req.CanReadPrivate = true
		}
	}
	return req
}

func (e *Env) ViewerID() int64 { return e.viewer }
func (e *Env) RecordID() int64 { return e.record }
func (e *Env) Now() time.Time  { return e.now }

func (e *Env) RequestParam(key string) string { return e.params[key] }

func (e *Env) RecordOwnerID() int64 {
	if e.owner != nil {
		return *e.owner
	}
	var owner int64
	if e.record > 0 {
		var err error
		if owner, err = e.lookups.RecordOwner(e.ctx, e.record); err != nil {
			e.log.Debug("record owner lookup failed", zap.Int64("record", e.record), zap.Error(err))
			owner = 0
		}
	}
	e.owner = &owner
	return owner
}

func (e *Env) ViewerAttribute(key string) string {
	if e.viewer <= 0 {
		return ""
	}
	if v, ok := e.attrs[key]; ok {
		return v
	}
	v, err := e.lookups.ViewerAttribute(e.ctx, e.viewer, key)
	if err != nil {
		e.log.Debug("viewer attribute lookup failed", zap.String("key", key), zap.Error(err))
		v = ""
	}
	e.attrs[key] = v
	return v
}

func (e *Env) RecordTerms(taxonomy string) []int64 {
	if e.record <= 0 {
		return nil
	}
	if ids, ok := e.terms[taxonomy]; ok {
		return ids
	}
	ids, err := e.lookups.RecordTerms(e.ctx, e.record, taxonomy)
	if err != nil {
		e.log.Debug("record terms lookup failed", zap.String("taxonomy", taxonomy), zap.Error(err))
		ids = nil
	}
	e.terms[taxonomy] = ids
	return ids
}

func (e *Env) TaxonomyExists(name string) bool {
	if e.taxonomies != nil && e.taxonomies.TaxonomyExists(name) {
		return true
	}
	if ok, seen := e.taxa[name]; seen {
		return ok
	}
	ok, err := e.lookups.TaxonomyExists(e.ctx, name)
	if err != nil {
		e.log.Debug("taxonomy lookup failed", zap.String("taxonomy", name), zap.Error(err))
		ok = false
	}
	e.taxa[name] = ok
	return ok
}
