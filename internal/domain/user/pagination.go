package user

// Filter narrows a user listing. Empty string fields are ignored and the
// remaining ones are combined with AND.
type Filter struct {
	Email          string // exact match
	NameContains   string // case-insensitive substring
	NameStartsWith string // case-insensitive prefix
	Limit          int
	Offset         int
}

// Pagination represents offset pagination information for list responses.
type Pagination struct {
	Total   int64 // Total number of matching records before paging
	Limit   int   // Page size
	Offset  int   // Number of records skipped
	HasNext bool  // More records exist after this page
	HasPrev bool  // Records exist before this page
}

// NewPagination creates a new Pagination instance with derived navigation flags.
func NewPagination(total int64, limit, offset int) *Pagination {
	return &Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasNext: int64(offset) < total && total-int64(offset) > int64(limit),
		HasPrev: offset > 0,
	}
}
