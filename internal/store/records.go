package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/atlekbai/query_forge/internal/fragment"
	"github.com/atlekbai/query_forge/internal/query"
	"github.com/atlekbai/query_forge/internal/result"
)

const (
	recAlias  = "_r"
	sortAlias = "_s"
	recTable  = `"content"."records"`
)

var recordColumns = []string{
	col(recAlias, "id"), col(recAlias, "record_type"), col(recAlias, "title"),
	col(recAlias, "body"), col(recAlias, "excerpt"), col(recAlias, "slug"),
	col(recAlias, "status"), col(recAlias, "owner_id"), col(recAlias, "created_at"),
	col(recAlias, "modified_at"), col(recAlias, "annotation_count"),
}

// Fragments supplies the custom JOIN and WHERE fragments of one execution.
type Fragments interface {
	Joins(primary string) []string
	Wheres(column string) []sq.Sqlizer
}

var _ Fragments = (*fragment.Lease)(nil)

type noFragments struct{}

func (noFragments) Joins(string) []string      { return nil }
func (noFragments) Wheres(string) []sq.Sqlizer { return nil }

// BuildRecordList renders the page query for p.
func BuildRecordList(p *query.Params, frags Fragments) (string, []any, error) {
	qb := sq.Select(recordColumns...).
		From(recTable + " " + recAlias).
		PlaceholderFormat(sq.Dollar)

	qb = applyRecordFilters(qb, p, frags)
	if p.MetaKey != "" {
		qb = qb.Join(fmt.Sprintf(`"content"."record_attributes" %s ON %s = %s AND %s = ?`,
			sortAlias, col(sortAlias, "record_id"), col(recAlias, "id"), col(sortAlias, "key")), p.MetaKey)
	}
	for _, clause := range recordOrderBy(p) {
		qb = qb.OrderBy(clause)
	}
	qb = qb.Limit(uint64(p.PerPage)).Offset(uint64(p.Offset()))

	return qb.ToSql()
}

// BuildRecordCount renders the total count query for p.
func BuildRecordCount(p *query.Params, frags Fragments) (string, []any, error) {
	qb := sq.Select("count(*)").
		From(recTable + " " + recAlias).
		PlaceholderFormat(sq.Dollar)
	qb = applyRecordFilters(qb, p, frags)
	if p.MetaKey != "" {
		qb = qb.Join(fmt.Sprintf(`"content"."record_attributes" %s ON %s = %s AND %s = ?`,
			sortAlias, col(sortAlias, "record_id"), col(recAlias, "id"), col(sortAlias, "key")), p.MetaKey)
	}
	return qb.ToSql()
}

func applyRecordFilters(qb sq.SelectBuilder, p *query.Params, frags Fragments) sq.SelectBuilder {
	if frags == nil {
		frags = noFragments{}
	}
	for _, j := range frags.Joins(recAlias) {
		qb = qb.LeftJoin(j)
	}

	qb = qb.Where(sq.Eq{col(recAlias, "record_type"): p.Source.RecordType})

	n := p.Native
	if n.Status != "" {
		qb = qb.Where(sq.Eq{col(recAlias, "status"): n.Status})
	}
	if p.Visibility != nil {
		qb = qb.Where(visibilityCondition(p.Visibility))
	}

	for _, term := range n.Search {
		like := "%" + fragment.EscapeLike(term) + "%"
		qb = qb.Where(sq.Or{
			sq.ILike{col(recAlias, "title"): like},
			sq.ILike{col(recAlias, "excerpt"): like},
			sq.ILike{col(recAlias, "body"): like},
		})
	}
	for _, w := range frags.Wheres(col(recAlias, "body")) {
		qb = qb.Where(w)
	}
	for _, d := range n.Dates {
		if cond := dateCondition(d); cond != nil {
			qb = qb.Where(cond)
		}
	}

	if n.OwnerID > 0 {
		qb = qb.Where(sq.Eq{col(recAlias, "owner_id"): n.OwnerID})
	}
	if len(n.OwnerIn) > 0 {
		qb = qb.Where(sq.Expr(col(recAlias, "owner_id")+" = ANY(?)", n.OwnerIn))
	}
	if len(n.OwnerNotIn) > 0 {
		qb = qb.Where(sq.Expr(col(recAlias, "owner_id")+" <> ALL(?)", n.OwnerNotIn))
	}
	if n.Slug != "" {
		qb = qb.Where(sq.Eq{col(recAlias, "slug"): n.Slug})
	}
	if c := n.AnnotationCount; c != nil {
		qb = qb.Where(sq.Expr(fmt.Sprintf("%s %s ?", col(recAlias, "annotation_count"), c.Compare), c.Value))
	}

	if len(p.RecordIn) > 0 {
		qb = qb.Where(sq.Expr(col(recAlias, "id")+" = ANY(?)", p.RecordIn))
	}
	if len(p.RecordNotIn) > 0 {
		qb = qb.Where(sq.Expr(col(recAlias, "id")+" <> ALL(?)", p.RecordNotIn))
	}

	if cond := attrCondition(p.Attr); cond != nil {
		qb = qb.Where(cond)
	}
	if cond := taxCondition(p.Tax); cond != nil {
		qb = qb.Where(cond)
	}
	return qb
}

func visibilityCondition(v *query.Visibility) sq.Sqlizer {
	status := col(recAlias, "status")
	visible := sq.Expr(status+" = ANY(?)", v.Statuses)
	if v.PrivateOwner <= 0 {
		return visible
	}
	return sq.Or{
		visible,
		sq.And{
			sq.Eq{status: query.StatusPrivate},
			sq.Eq{col(recAlias, "owner_id"): v.PrivateOwner},
		},
	}
}

var dateColumns = map[string]string{
	query.FieldDate:     "created_at",
	query.FieldModified: "modified_at",
}

func dateCondition(d query.DateFilter) sq.Sqlizer {
	column, ok := dateColumns[d.Column]
	if !ok {
		return nil
	}
	c := col(recAlias, column)

	if d.Year > 0 {
		return sq.And{
			sq.Expr(fmt.Sprintf("EXTRACT(YEAR FROM %s) = ?", c), d.Year),
			sq.Expr(fmt.Sprintf("EXTRACT(MONTH FROM %s) = ?", c), d.Month),
			sq.Expr(fmt.Sprintf("EXTRACT(DAY FROM %s) = ?", c), d.Day),
		}
	}

	var conds sq.And
	if d.After != nil {
		if d.Inclusive {
			conds = append(conds, sq.GtOrEq{c: *d.After})
		} else {
			conds = append(conds, sq.Gt{c: *d.After})
		}
	}
	if d.Before != nil {
		if d.Inclusive {
			conds = append(conds, sq.LtOrEq{c: *d.Before})
		} else {
			conds = append(conds, sq.Lt{c: *d.Before})
		}
	}
	if len(conds) == 0 {
		return nil
	}
	return conds
}

var sortColumns = map[query.SortField]string{
	query.SortID:           col(recAlias, "id"),
	query.SortTitle:        col(recAlias, "title"),
	query.SortDate:         col(recAlias, "created_at"),
	query.SortModified:     col(recAlias, "modified_at"),
	query.SortMenuOrder:    col(recAlias, "menu_order"),
	query.SortRand:         "random()",
	query.SortMetaValue:    col(sortAlias, "value"),
	query.SortMetaValueNum: castColumn(col(sortAlias, "value"), query.TypeNumeric),
	query.SortCommentCount: col(recAlias, "annotation_count"),
}

func recordOrderBy(p *query.Params) []string {
	var out []string
	if !p.IgnoreSticky {
		out = append(out, col(recAlias, "sticky")+" DESC")
	}
	byID := false
	for _, k := range p.Sorts {
		expr, ok := sortColumns[k.Field]
		if !ok || (k.Field.IsMeta() && p.MetaKey == "") {
			continue
		}
		if k.Field == query.SortRand {
			out = append(out, expr)
			continue
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		out = append(out, expr+" "+dir)
		byID = byID || k.Field == query.SortID
	}
	if !byID {
		out = append(out, col(recAlias, "id")+" DESC")
	}
	return out
}

// Records runs the page and count queries for p concurrently.
func (s *Store) Records(ctx context.Context, p *query.Params, frags Fragments) ([]result.Item, int, error) {
	listSQL, listArgs, err := BuildRecordList(p, frags)
	if err != nil {
		return nil, 0, fmt.Errorf("build record list: %w", err)
	}
	countSQL, countArgs, err := BuildRecordCount(p, frags)
	if err != nil {
		return nil, 0, fmt.Errorf("build record count: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	var total int
	g.Go(func() error {
		if err := s.pool.QueryRow(gctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("record count: %w", err)
		}
		return nil
	})

	var items []result.Item
	g.Go(func() error {
		rows, err := s.pool.Query(gctx, listSQL, listArgs...)
		if err != nil {
			return fmt.Errorf("record list: %w", err)
		}
		defer rows.Close()
		items, err = scanRecords(rows)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func scanRecords(rows pgx.Rows) ([]result.Item, error) {
	var items []result.Item
	for rows.Next() {
		var (
			it              result.Item
			slug, status    string
			modified        time.Time
			annotationCount int64
		)
		err := rows.Scan(&it.ID, &it.Type, &it.Title, &it.Content, &it.Excerpt,
			&slug, &status, &it.OwnerID, &it.Date, &modified, &annotationCount)
		if err != nil {
			return nil, fmt.Errorf("record scan: %w", err)
		}
		it.Raw = map[string]any{
			"slug":             slug,
			"status":           status,
			"modified":         modified,
			"annotation_count": annotationCount,
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("record rows: %w", err)
	}
	return items, nil
}
