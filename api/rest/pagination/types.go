package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// limit/offset parsed from the query string
type Params struct {
	Limit  int
	Offset int
}

// pagination metadata for list responses
type Meta struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// creates pagination metadata from params and total count
func NewMeta(params Params, total int) Meta {
	return Meta{
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: params.Offset+params.Limit < total,
	}
}

// returns pagination params with defaults applied
// defaultLimit: default items per page, maxLimit: maximum allowed limit
func DefaultParams(limit, offset, defaultLimit, maxLimit int) Params {
	if limit <= 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	if offset < 0 {
		offset = 0
	}

	return Params{
		Limit:  limit,
		Offset: offset,
	}
}

// reads ?limit= and ?offset=, unparseable values fall back to the defaults
func FromQuery(c *gin.Context, defaultLimit, maxLimit int) Params {
	limit, _ := strconv.Atoi(c.Query("limit"))   //nolint:errcheck // zero falls back to the default
	offset, _ := strconv.Atoi(c.Query("offset")) //nolint:errcheck // zero is the first page

	return DefaultParams(limit, offset, defaultLimit, maxLimit)
}

// returns the window of items selected by params
func Page[T any](items []T, params Params) []T {
	if params.Offset >= len(items) {
		return []T{}
	}

	end := min(params.Offset+params.Limit, len(items))

	return items[params.Offset:end]
}
