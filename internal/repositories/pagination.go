package repositories

// Pagination selects one page of a listing.
type Pagination struct {
	Page  int
	Limit int
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Normalize fills in defaults and clamps out-of-range values.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > maxLimit {
		p.Limit = defaultLimit
	}
	return p
}

func (p Pagination) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}
