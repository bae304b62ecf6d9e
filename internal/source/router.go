package source

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/atlekbai/query_forge/internal/edition"
	"github.com/atlekbai/query_forge/internal/logging"
	"github.com/atlekbai/query_forge/internal/query"
	"github.com/atlekbai/query_forge/internal/result"
	"github.com/atlekbai/query_forge/internal/store"
	"github.com/atlekbai/query_forge/internal/telemetry"
)

// ErrGated is returned together with the empty result when a source needs
// the full edition and it is not active.
var ErrGated = errors.New("source: requires the full edition")

type RecordBackend interface {
	Records(ctx context.Context, p *query.Params, frags store.Fragments) ([]result.Item, int, error)
}

type UserBackend interface {
	Users(ctx context.Context, f store.UserFilter) ([]result.Item, int, error)
}

type CommentBackend interface {
	Comments(ctx context.Context, f store.CommentFilter) ([]result.Item, error)
	CommentCounts(ctx context.Context) (store.CommentCounts, error)
	RecordIDsByType(ctx context.Context, recordType string) ([]int64, error)
}

type TableBackend interface {
	TableRows(ctx context.Context, name string, limit, offset int) ([]map[string]any, int, error)
}

// Backends groups the stores the router dispatches to. *store.Store
// satisfies all four.
type Backends struct {
	Records  RecordBackend
	Users    UserBackend
	Comments CommentBackend
	Tables   TableBackend
}

// StoreBackends uses s for every backend.
func StoreBackends(s *store.Store) Backends {
	return Backends{Records: s, Users: s, Comments: s, Tables: s}
}

// Router executes a Source against its backend.
type Router struct {
	backends Backends
	remote   *RemoteClient
	gate     edition.Gate
	log      *zap.Logger
}

func NewRouter(b Backends, remote *RemoteClient, gate edition.Gate, log *zap.Logger) *Router {
	if remote == nil {
		remote = NewRemoteClient()
	}
	return &Router{backends: b, remote: remote, gate: gate, log: logging.OrNop(log)}
}

// Dispatch runs src. Sources other than Record return the canonical empty
// result with ErrGated while the full edition is inactive. Any other error
// comes with a nil result.
func (r *Router) Dispatch(ctx context.Context, src Source, frags store.Fragments) (*result.Wrapper, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "source.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("queryforge.source", string(src.Kind())))

	if _, isRecord := src.(Record); !isRecord && !r.gate.Pro() {
		r.log.Debug("source gated", zap.String("source", string(src.Kind())))
		return result.Empty(), ErrGated
	}

	var (
		w   *result.Wrapper
		err error
	)
	switch s := src.(type) {
	case Record:
		w, err = r.record(ctx, s, frags)
	case User:
		w, err = r.user(ctx, s)
	case Comment:
		w, err = r.comment(ctx, s)
	case Table:
		w, err = r.table(ctx, s)
	case Remote:
		w, err = r.remote.Fetch(ctx, s)
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownSource, src)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("queryforge.items", w.Count()))
	return w, nil
}

func (r *Router) record(ctx context.Context, s Record, frags store.Fragments) (*result.Wrapper, error) {
	items, total, err := r.backends.Records.Records(ctx, s.Params, frags)
	if err != nil {
		return nil, fmt.Errorf("records: %w", err)
	}
	return result.New(items, total, s.Params.PerPage), nil
}

func (r *Router) user(ctx context.Context, s User) (*result.Wrapper, error) {
	items, total, err := r.backends.Users.Users(ctx, store.UserFilter{
		Role:   s.Role,
		Limit:  s.PerPage,
		Offset: s.offset(),
		Sorts:  s.Sorts,
	})
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	return result.New(items, total, s.PerPage), nil
}

func (r *Router) comment(ctx context.Context, s Comment) (*result.Wrapper, error) {
	f := store.CommentFilter{
		Statuses: commentStatuses(s.Status),
		Limit:    s.PerPage,
		Offset:   s.offset(),
		Asc:      s.Asc,
	}
	if s.ParentType != "" {
		ids, err := r.backends.Comments.RecordIDsByType(ctx, s.ParentType)
		if err != nil {
			return nil, fmt.Errorf("comment parents: %w", err)
		}
		if len(ids) == 0 {
			// No record of the type exists; 0 matches nothing.
			ids = []int64{0}
		}
		f.RecordIDs = ids
	}

	items, err := r.backends.Comments.Comments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("comments: %w", err)
	}
	counts, err := r.backends.Comments.CommentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("comment counts: %w", err)
	}
	return result.New(items, commentTotal(s.Status, counts), s.PerPage), nil
}

func (r *Router) table(ctx context.Context, s Table) (*result.Wrapper, error) {
	rows, total, err := r.backends.Tables.TableRows(ctx, s.Name, s.PerPage, s.offset())
	if errors.Is(err, store.ErrTableMissing) {
		r.log.Debug("table source missing", zap.String("table", s.Name))
		return result.Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("table rows: %w", err)
	}

	items := make([]result.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, rowItem(row, "table"))
	}
	return result.New(items, total, s.PerPage), nil
}
