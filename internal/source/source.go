// Package source routes compiled queries to the backend that serves their
// source kind and maps every backend's rows into the common item shape.
package source

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atlekbai/query_forge/internal/query"
	"github.com/atlekbai/query_forge/internal/schema"
	"github.com/atlekbai/query_forge/internal/store"
)

// ErrUnknownSource is returned for a source kind outside the vocabulary.
var ErrUnknownSource = errors.New("source: unknown source type")

// Source is one of Record, User, Comment, Table or Remote.
type Source interface {
	Kind() schema.SourceKind
	isSource()
}

// Page is the pagination shared by every source.
type Page struct {
	Number  int
	PerPage int
}

func (p Page) offset() int { return (p.Number - 1) * p.PerPage }

// Record queries the native record backend.
type Record struct {
	Params *query.Params
}

// User lists users, optionally limited to one role.
type User struct {
	Page
	Role  string
	Sorts []query.SortKey
}

// Comment lists comments. Status is the requested moderation state, "all"
// for approved and held comments together. ParentType restricts comments to
// records of that type.
type Comment struct {
	Page
	Status     string
	ParentType string
	Asc        bool
}

// Table pages over an arbitrary table by name.
type Table struct {
	Page
	Name string
}

// Remote fetches items from an HTTP endpoint.
type Remote struct {
	Page
	URL    string
	Method string
}

func (Record) Kind() schema.SourceKind  { return schema.KindRecord }
func (User) Kind() schema.SourceKind    { return schema.KindUser }
func (Comment) Kind() schema.SourceKind { return schema.KindComment }
func (Table) Kind() schema.SourceKind   { return schema.KindTable }
func (Remote) Kind() schema.SourceKind  { return schema.KindAPI }

func (Record) isSource()  {}
func (User) isSource()    {}
func (Comment) isSource() {}
func (Table) isSource()   {}
func (Remote) isSource()  {}

// FromParams selects the source variant for compiled params.
func FromParams(p *query.Params) (Source, error) {
	spec := p.Source
	page := Page{Number: max(p.Page, 1), PerPage: p.PerPage}
	if page.PerPage <= 0 {
		page.PerPage = query.DefaultPerPage
	}

	switch spec.Kind {
	case schema.KindRecord:
		return Record{Params: p}, nil
	case schema.KindUser:
		return User{Page: page, Role: spec.Role, Sorts: p.Sorts}, nil
	case schema.KindComment:
		return Comment{
			Page:       page,
			Status:     spec.Status,
			ParentType: spec.ParentType,
			Asc:        len(p.Sorts) > 0 && !p.Sorts[0].Desc,
		}, nil
	case schema.KindTable:
		return Table{Page: page, Name: spec.Value}, nil
	case schema.KindAPI:
		method := strings.ToUpper(spec.Method)
		if method == "" {
			method = http.MethodGet
		}
		return Remote{Page: page, URL: strings.TrimSpace(spec.Value), Method: method}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, spec.TypeName)
}

// commentStatuses maps a requested comment status to stored states.
func commentStatuses(status string) []string {
	switch strings.ToLower(status) {
	case "", "approve", store.CommentApproved:
		return []string{store.CommentApproved}
	case "all":
		return []string{store.CommentApproved, store.CommentHold}
	case store.CommentHold, store.CommentSpam, store.CommentTrash:
		return []string{strings.ToLower(status)}
	}
	return []string{store.CommentApproved}
}

// commentTotal approximates the total from the aggregate counters.
func commentTotal(status string, c store.CommentCounts) int {
	switch strings.ToLower(status) {
	case "all":
		return c.Approved + c.Moderated
	case store.CommentHold:
		return c.Moderated
	case store.CommentSpam:
		return c.Spam
	case store.CommentTrash:
		return c.Trash
	}
	return c.Approved
}
