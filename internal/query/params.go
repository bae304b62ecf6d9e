package query

import (
	"github.com/hashicorp/go-multierror"

	"github.com/atlekbai/query_forge/internal/schema"
)

const DefaultPerPage = 10

// Record visibility states.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
	StatusPending = "pending"
	StatusFuture  = "future"
	StatusPrivate = "private"
)

var previewStatuses = []string{StatusPublish, StatusDraft, StatusPending, StatusFuture, StatusPrivate}

// Options carry the per-execution context compilation depends on.
type Options struct {
	Pro            bool
	Page           int
	Preview        bool
	ViewerID       int64
	CanReadPrivate bool
}

// Visibility is the default status constraint of a record query. Records
// in Statuses are visible; private records owned by PrivateOwner are
// visible as well.
type Visibility struct {
	Statuses     []string
	PrivateOwner int64
}

// Params is the compiled, backend-agnostic form of a document.
type Params struct {
	Source  schema.SourceSpec
	Page    int
	PerPage int

	Sorts   []SortKey
	MetaKey string

	Native     NativeArgs
	Attr       *AttrNode
	Tax        *TaxNode
	Joins      []schema.Join
	Visibility *Visibility

	RecordIn     []int64
	RecordNotIn  []int64
	IgnoreSticky bool
}

// Offset returns the row offset of the requested page.
func (p *Params) Offset() int { return (p.Page - 1) * p.PerPage }

// Compile builds Params from a document. The returned Params are always
// usable; the error lists the parts that were skipped or downgraded.
func Compile(doc *schema.Document, opts Options) (*Params, error) {
	var problems *multierror.Error

	p := &Params{
		Source:       doc.Source,
		Page:         max(opts.Page, 1),
		PerPage:      DefaultPerPage,
		IgnoreSticky: true,
	}
	if doc.Target.PerPage > 0 {
		p.PerPage = doc.Target.PerPage
	}
	p.Sorts, p.MetaKey = CompileSorts(doc.Target, opts.Pro)

	native, attr := Classify(doc.Filters, opts.Pro)

	var errs []error
	p.Native, errs = CompileNative(native)
	problems = multierror.Append(problems, errs...)

	p.Attr, errs = CompileAttr(attr, opts.Pro)
	problems = multierror.Append(problems, errs...)

	p.Tax = CompileTax(doc.TaxFilters, opts.Pro)

	ie := doc.IncludeExclude
	p.RecordIn = ie.RecordIn
	p.RecordNotIn = ie.RecordNotIn
	p.Native.OwnerIn = append(p.Native.OwnerIn, ie.OwnerIn...)
	p.Native.OwnerNotIn = append(p.Native.OwnerNotIn, ie.OwnerNotIn...)
	if ie.IgnoreSticky != nil {
		p.IgnoreSticky = *ie.IgnoreSticky
	}

	if opts.Pro {
		p.Joins = doc.Joins
	}

	// An explicit status replaces the default only in preview. In public
	// context the default stays as the bound the requested status must
	// also satisfy. A status clause that failed to compile lifts nothing.
	explicit := HasField(native, FieldStatus) && p.Native.Status != ""
	if !explicit || !opts.Preview {
		p.Visibility = defaultVisibility(opts)
	}

	return p, problems.ErrorOrNil()
}

func defaultVisibility(opts Options) *Visibility {
	if opts.Preview {
		return &Visibility{Statuses: append([]string(nil), previewStatuses...)}
	}
	v := &Visibility{Statuses: []string{StatusPublish}}
	switch {
	case opts.CanReadPrivate:
		v.Statuses = append(v.Statuses, StatusPrivate)
	case opts.ViewerID > 0:
		v.PrivateOwner = opts.ViewerID
	}
	return v
}
