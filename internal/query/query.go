// Package query models the all-posts listing query and its location encoding.
//
// A Query is the (text, sort, page) tuple that fully determines one listing
// fetch. Its location form omits every parameter left at its default, so the
// bare listing path means "first page, newest first, no filter".
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// PageSize is the fixed number of posts per listing page.
const PageSize = 9

// ListingPath is the location of the all-posts listing.
const ListingPath = "/all-blogs"

// Location parameter names.
const (
	ParamText = "q"
	ParamPage = "page"
	ParamSort = "sort"
)

// Sort is the listing order.
type Sort string

const (
	SortNew Sort = "new"
	SortOld Sort = "old"
)

// ParseSort maps anything other than "old" to SortNew.
func ParseSort(s string) Sort {
	if Sort(s) == SortOld {
		return SortOld
	}
	return SortNew
}

// Toggle returns the other order.
func (s Sort) Toggle() Sort {
	if s == SortOld {
		return SortNew
	}
	return SortOld
}

// Label is the human name shown in the sort selector.
func (s Sort) Label() string {
	if s == SortOld {
		return "Oldest"
	}
	return "Newest"
}

// Query is an immutable listing query.
type Query struct {
	Text string
	Sort Sort
	Page int
}

// Default is the unfiltered first page, newest first.
func Default() Query {
	return Query{Sort: SortNew, Page: 1}
}

// WithText returns q filtered by text, back on page 1.
func (q Query) WithText(text string) Query {
	q.Text = text
	q.Page = 1
	return q
}

// WithSort returns q ordered by s, back on page 1.
func (q Query) WithSort(s Sort) Query {
	q.Sort = s
	q.Page = 1
	return q
}

// WithPage returns q on page p.
func (q Query) WithPage(p int) Query {
	q.Page = p
	return q
}

// IsDefault reports whether every parameter is at its default.
func (q Query) IsDefault() bool {
	return q.Text == "" && q.Page <= 1 && q.Sort != SortOld
}

// Encode returns the query string holding only non-default parameters,
// in q, page, sort order. Empty when q is the default query.
func (q Query) Encode() string {
	var parts []string
	if q.Text != "" {
		parts = append(parts, ParamText+"="+url.QueryEscape(q.Text))
	}
	if q.Page > 1 {
		parts = append(parts, ParamPage+"="+strconv.Itoa(q.Page))
	}
	if q.Sort == SortOld {
		parts = append(parts, ParamSort+"="+string(q.Sort))
	}
	return strings.Join(parts, "&")
}

// Path returns the listing location for q.
func (q Query) Path() string {
	if enc := q.Encode(); enc != "" {
		return ListingPath + "?" + enc
	}
	return ListingPath
}

// FromValues reads a Query from location parameters. A missing, malformed,
// or non-positive page becomes 1; an unknown sort becomes SortNew.
func FromValues(v url.Values) Query {
	q := Default()
	q.Text = v.Get(ParamText)
	if n, err := strconv.Atoi(v.Get(ParamPage)); err == nil && n > 0 {
		q.Page = n
	}
	q.Sort = ParseSort(v.Get(ParamSort))
	return q
}

// Parse reads a Query from a location such as "/all-blogs?q=go&page=2".
func Parse(location string) (Query, error) {
	u, err := url.Parse(location)
	if err != nil {
		return Default(), err
	}
	return FromValues(u.Query()), nil
}

// TotalPages is max(1, ceil(total/PageSize)).
func TotalPages(total int) int {
	if total <= 0 {
		return 1
	}
	return (total + PageSize - 1) / PageSize
}

// Clamp forces page into [1, totalPages].
func Clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
