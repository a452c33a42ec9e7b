package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageRequest is the 1-based page window of a list request.
type PageRequest struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"pageSize"`
}

// PageResponse is one page of results plus the numbers a client needs to
// render a pager.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int64 `json:"page"`
	PageSize   int64 `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPageResponse computes the page count, never reporting fewer than one
// page even for empty results.
func NewPageResponse[T any](data []T, page, pageSize, totalItems int64) PageResponse[T] {
	pages := (totalItems + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}

	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// ParsePagination reads page and pageSize from the query string, clamping
// out-of-range values instead of rejecting them.
func ParsePagination(c *gin.Context) PageRequest {
	req := PageRequest{
		Page:     queryInt64(c, "page", 1),
		PageSize: queryInt64(c, "pageSize", defaultPageSize),
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	return req
}

func queryInt64(c *gin.Context, key string, fallback int64) int64 {
	v, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

// SortOrder is a sort direction as it appears in query strings.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortRequest names the field and direction a list is ordered by.
type SortRequest struct {
	Field string    `json:"sortBy"`
	Order SortOrder `json:"sortOrder"`
}

// ParseSort reads sortBy and sortOrder, falling back to descending order
// on anything unrecognized.
func ParseSort(c *gin.Context, defaultField string) SortRequest {
	req := SortRequest{
		Field: c.DefaultQuery("sortBy", defaultField),
		Order: SortOrder(c.Query("sortOrder")),
	}
	if req.Order != SortAsc {
		req.Order = SortDesc
	}
	return req
}

// FilterRequest represents shipment list filter parameters. Multi-valued
// fields accept repeated query params or comma-separated values.
type FilterRequest struct {
	Statuses         []string   `json:"statuses,omitempty"`
	Suppliers        []string   `json:"suppliers,omitempty"`
	Warehouses       []string   `json:"warehouses,omitempty"`
	Incoterms        []string   `json:"incoterms,omitempty"`
	ForwardingAgents []string   `json:"forwardingAgents,omitempty"`
	WeekFrom         *int       `json:"weekFrom,omitempty"`
	WeekTo           *int       `json:"weekTo,omitempty"`
	ArrivalFrom      *time.Time `json:"arrivalFrom,omitempty"`
	ArrivalTo        *time.Time `json:"arrivalTo,omitempty"`
	Search           string     `json:"search,omitempty"`
	IncludeArchived  bool       `json:"includeArchived"`
}

// ParseFilter parses filter parameters from Gin context. A single
// weekNumber pins both ends of the week range; arrival bounds are
// RFC 3339 timestamps.
func ParseFilter(c *gin.Context) (FilterRequest, error) {
	filter := FilterRequest{
		Statuses:         MultiQuery(c, "status"),
		Suppliers:        MultiQuery(c, "supplier"),
		Warehouses:       MultiQuery(c, "warehouse"),
		Incoterms:        MultiQuery(c, "incoterm"),
		ForwardingAgents: MultiQuery(c, "forwardingAgent"),
		Search:           strings.TrimSpace(c.Query("search")),
		IncludeArchived:  c.Query("archived") == "true",
	}

	week, err := intQuery(c, "weekNumber")
	if err != nil {
		return filter, err
	}
	if week != nil {
		filter.WeekFrom = week
		filter.WeekTo = week
	}

	if filter.WeekFrom == nil {
		if filter.WeekFrom, err = intQuery(c, "weekFrom"); err != nil {
			return filter, err
		}
	}
	if filter.WeekTo == nil {
		if filter.WeekTo, err = intQuery(c, "weekTo"); err != nil {
			return filter, err
		}
	}
	if filter.ArrivalFrom, err = timeQuery(c, "arrivalFrom"); err != nil {
		return filter, err
	}
	if filter.ArrivalTo, err = timeQuery(c, "arrivalTo"); err != nil {
		return filter, err
	}

	return filter, nil
}

// MultiQuery collects the values of a repeatable query param, splitting
// comma-separated entries and dropping blanks
func MultiQuery(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if v := strings.TrimSpace(part); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}

func intQuery(c *gin.Context, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q is not an RFC 3339 timestamp", key, raw)
	}
	return &t, nil
}

// ListRequest combines pagination, sorting, and filtering
type ListRequest struct {
	Pagination PageRequest
	Sort       SortRequest
	Filter     FilterRequest
}

// ParseListRequest parses all list parameters from Gin context
func ParseListRequest(c *gin.Context, defaultSortField string) (ListRequest, error) {
	filter, err := ParseFilter(c)
	if err != nil {
		return ListRequest{}, err
	}
	return ListRequest{
		Pagination: ParsePagination(c),
		Sort:       ParseSort(c, defaultSortField),
		Filter:     filter,
	}, nil
}
