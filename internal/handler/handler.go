// Package handler serves the REST surface: query execution, load more,
// saved queries and field discovery.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/atlekbai/query_forge/internal/compiler"
	"github.com/atlekbai/query_forge/internal/hostenv"
	"github.com/atlekbai/query_forge/internal/logging"
	"github.com/atlekbai/query_forge/internal/query"
	"github.com/atlekbai/query_forge/internal/result"
	"github.com/atlekbai/query_forge/internal/schema"
	"github.com/atlekbai/query_forge/internal/store"
)

// Executor runs schema documents. *compiler.Compiler satisfies it.
type Executor interface {
	GetQuery(ctx context.Context, raw []byte, req compiler.Request) *result.Wrapper
}

type SavedQueries interface {
	CreateSavedQuery(ctx context.Context, q store.SavedQuery) (store.SavedQuery, error)
	ListSavedQueries(ctx context.Context) ([]store.SavedQuery, error)
	GetSavedQuery(ctx context.Context, id uuid.UUID) (store.SavedQuery, error)
	DeleteSavedQuery(ctx context.Context, id uuid.UUID) error
}

type FieldLookup interface {
	AttributeKeys(ctx context.Context, recordType string) ([]string, error)
}

// Deps are the handler's collaborators. Log may be nil.
type Deps struct {
	Executor   Executor
	Saved      SavedQueries
	Fields     FieldLookup
	Lookups    hostenv.Lookups
	Taxonomies hostenv.Taxonomies
	Log        *zap.Logger
}

type Handler struct {
	exec       Executor
	saved      SavedQueries
	fields     FieldLookup
	lookups    hostenv.Lookups
	taxonomies hostenv.Taxonomies
	log        *zap.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		exec:       d.Executor,
		saved:      d.Saved,
		fields:     d.Fields,
		lookups:    d.Lookups,
		taxonomies: d.Taxonomies,
		log:        logging.OrNop(d.Log),
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/v1/query", h.Query).Methods(http.MethodPost)
	r.HandleFunc("/v1/query/more", h.LoadMore).Methods(http.MethodPost)
	r.HandleFunc("/v1/saved-queries", h.ListSaved).Methods(http.MethodGet)
	r.HandleFunc("/v1/saved-queries", h.CreateSaved).Methods(http.MethodPost)
	r.HandleFunc("/v1/saved-queries/{id}", h.GetSaved).Methods(http.MethodGet)
	r.HandleFunc("/v1/saved-queries/{id}", h.DeleteSaved).Methods(http.MethodDelete)
	r.HandleFunc("/v1/fields", h.Fields).Methods(http.MethodGet)
}

// queryRequest carries the schema either as an embedded object or as a
// JSON string holding the document.
type queryRequest struct {
	Schema json.RawMessage `json:"schema"`
	Page   int             `json:"page"`
	Paged  int             `json:"paged"`
}

func (q queryRequest) document() []byte {
	raw := bytes.TrimSpace(q.Schema)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return []byte(s)
		}
	}
	return raw
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON", err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) execute(r *http.Request, raw []byte, page int) *result.Wrapper {
	hreq := hostenv.RequestFromHTTP(r)
	env := hostenv.New(r.Context(), h.lookups, h.taxonomies, hreq, h.log)
	return h.exec.GetQuery(r.Context(), raw, compiler.Request{
		Page:           page,
		Preview:        hreq.Preview,
		CanReadPrivate: hreq.CanReadPrivate,
		Env:            env,
	})
}

// Query handles POST /v1/query. Schema problems never fail the request;
// they produce an empty page.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	page := max(req.Page, req.Paged, 1)
	res := h.execute(r, req.document(), page)
	writeJSON(w, http.StatusOK, pageResponse(res, page))
}

// LoadMore handles POST /v1/query/more.
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	raw := req.document()
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "Schema is required", "")
		return
	}
	paged := max(req.Paged, req.Page, 1)
	res := h.execute(r, raw, paged)

	resp := LoadMoreResponse{
		Items:       res.Items(),
		HasMore:     res.HasMore(paged),
		CurrentPage: paged,
		MaxPages:    res.PageCount(),
	}
	if resp.Items == nil {
		resp.Items = []result.Item{}
	}
	if resp.HasMore {
		next := paged + 1
		resp.NextPage = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

type savedQueryRequest struct {
	Name       string `json:"name"`
	GraphState string `json:"graph_state"`
	LogicJSON  string `json:"logic_json"`
}

// CreateSaved handles POST /v1/saved-queries.
func (h *Handler) CreateSaved(w http.ResponseWriter, r *http.Request) {
	var req savedQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON", err.Error())
		return
	}
	name := schema.SanitizeText(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "Name is required", "")
		return
	}
	q, err := h.saved.CreateSavedQuery(r.Context(), store.SavedQuery{
		Name:       name,
		GraphState: req.GraphState,
		LogicJSON:  req.LogicJSON,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save query", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// ListSaved handles GET /v1/saved-queries.
func (h *Handler) ListSaved(w http.ResponseWriter, r *http.Request) {
	qs, err := h.saved.ListSavedQueries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list queries", err.Error())
		return
	}
	if qs == nil {
		qs = []store.SavedQuery{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": qs})
}

// GetSaved handles GET /v1/saved-queries/{id}.
func (h *Handler) GetSaved(w http.ResponseWriter, r *http.Request) {
	id, ok := savedID(w, r)
	if !ok {
		return
	}
	q, err := h.saved.GetSavedQuery(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "QUERY_NOT_FOUND", "Saved query not found", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load query", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// DeleteSaved handles DELETE /v1/saved-queries/{id}.
func (h *Handler) DeleteSaved(w http.ResponseWriter, r *http.Request) {
	id, ok := savedID(w, r)
	if !ok {
		return
	}
	err := h.saved.DeleteSavedQuery(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "QUERY_NOT_FOUND", "Saved query not found", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete query", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func savedID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAM", "Invalid ID format", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// Field is one filterable field offered to query builders.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// commonAttributeKeys are offered even when no record uses them yet.
var commonAttributeKeys = []string{"_thumbnail_id", "_image_alt"}

var nativeLabels = map[string]string{
	query.FieldTitle:           "Title",
	query.FieldBody:            "Content",
	query.FieldExcerpt:         "Excerpt",
	query.FieldDate:            "Date",
	query.FieldModified:        "Modified",
	query.FieldOwner:           "Author",
	query.FieldSlug:            "Slug",
	query.FieldStatus:          "Status",
	query.FieldAnnotationCount: "Comment count",
}

// Fields handles GET /v1/fields?record_type=.
func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	recordType := schema.SanitizeKey(r.URL.Query().Get("record_type"))
	if recordType == "" {
		recordType = schema.DefaultRecordType
	}

	keys, err := h.fields.AttributeKeys(r.Context(), recordType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list fields", err.Error())
		return
	}
	keys = append(keys, commonAttributeKeys...)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	var native []Field
	for _, name := range query.NativeFieldNames() {
		label := nativeLabels[name]
		if label == "" {
			label = name
		}
		native = append(native, Field{Key: name, Label: label, Type: "standard"})
	}
	all := slices.Clone(native)
	for _, k := range keys {
		all = append(all, Field{Key: k, Label: k, Type: "meta"})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fields":          all,
		"standard_fields": native,
		"attribute_keys":  keys,
	})
}
