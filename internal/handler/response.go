package handler

import (
	"encoding/json"
	"net/http"

	"github.com/atlekbai/query_forge/internal/result"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// PageResponse is the JSON form of a result page.
type PageResponse struct {
	Items     []result.Item `json:"items"`
	Total     int           `json:"total"`
	PerPage   int           `json:"per_page"`
	PageCount int           `json:"page_count"`
	Page      int           `json:"page"`
	HasMore   bool          `json:"has_more"`
}

// LoadMoreResponse answers a load-more request.
type LoadMoreResponse struct {
	Items       []result.Item `json:"items"`
	HasMore     bool          `json:"has_more"`
	NextPage    *int          `json:"next_page"`
	CurrentPage int           `json:"current_page"`
	MaxPages    int           `json:"max_pages"`
}

func pageResponse(w *result.Wrapper, page int) PageResponse {
	items := w.Items()
	if items == nil {
		items = []result.Item{}
	}
	return PageResponse{
		Items:     items,
		Total:     w.Total(),
		PerPage:   w.PerPage(),
		PageCount: w.PageCount(),
		Page:      page,
		HasMore:   w.HasMore(page),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
