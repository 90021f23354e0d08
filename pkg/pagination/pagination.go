package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds page pagination inputs for list endpoints.
type Params struct {
	Page  int
	Limit int
}

// Page is the pagination block returned alongside list responses.
type Page struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize fills defaults: page 1 and DefaultLimit.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Apply writes page and limit into a query when they were set.
func (p Params) Apply(query url.Values) url.Values {
	if query == nil {
		query = url.Values{}
	}
	if p.Page > 0 {
		query.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		query.Set("limit", strconv.Itoa(p.Limit))
	}
	return query
}

// FromQuery reads page and limit from a query string, ignoring malformed values.
func FromQuery(query url.Values) Params {
	page, _ := strconv.Atoi(query.Get("page"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	return Params{Page: page, Limit: limit}.Normalize()
}

// Window returns the [start, end) slice bounds of the requested page within total rows
// and the page block describing it.
func Window(params Params, total int) (start, end int, page Page) {
	params = params.Normalize()
	start = (params.Page - 1) * params.Limit
	if start > total {
		start = total
	}
	end = start + params.Limit
	if end > total {
		end = total
	}
	totalPages := (total + params.Limit - 1) / params.Limit
	return start, end, Page{Page: params.Page, Limit: params.Limit, Total: total, TotalPages: totalPages}
}
