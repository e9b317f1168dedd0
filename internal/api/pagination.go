package api

import (
	"net/http"
	"strconv"
)

// pageParams is a parsed page/limit pair from the query string.
type pageParams struct {
	Page  int
	Limit int
}

// Offset converts the page number into a row offset.
func (p pageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// pageFromRequest reads page and limit query params, falling back to
// defaultLimit and clamping to maxLimit.
func pageFromRequest(r *http.Request, defaultLimit, maxLimit int) pageParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	switch {
	case limit < 1:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	return pageParams{Page: page, Limit: limit}
}

// listEnvelope wraps list data with paging metadata.
type listEnvelope struct {
	Data       interface{} `json:"data"`
	Pagination listMeta    `json:"pagination"`
}

type listMeta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// paginate builds the response envelope. An empty result still reports
// one page so page and total_pages never contradict each other.
func paginate(data interface{}, p pageParams, total int) listEnvelope {
	totalPages := (total + p.Limit - 1) / p.Limit
	if totalPages < 1 {
		totalPages = 1
	}
	return listEnvelope{
		Data: data,
		Pagination: listMeta{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasMore:    p.Page < totalPages,
		},
	}
}
