package shared

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata. A non-positive totalPages is
// derived from total and perPage.
func NewPagination(page, perPage, total, totalPages int) Pagination {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	if total < 0 {
		total = 0
	}
	if totalPages <= 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	if totalPages < 1 {
		totalPages = 1
	}
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// Prev returns the previous page number.
func (p Pagination) Prev() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// Next returns the following page number.
func (p Pagination) Next() int {
	if p.Page >= p.TotalPages {
		return p.TotalPages
	}
	return p.Page + 1
}

// Window returns up to size page numbers centred on the current page.
func (p Pagination) Window(size int) []int {
	if size <= 0 || p.TotalPages <= 0 {
		return nil
	}
	start := p.Page - size/2
	if start < 1 {
		start = 1
	}
	end := start + size - 1
	if end > p.TotalPages {
		end = p.TotalPages
		start = end - size + 1
		if start < 1 {
			start = 1
		}
	}
	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

// FirstItem is the 1-based index of the first record on the page.
func (p Pagination) FirstItem() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Page-1)*p.PerPage + 1
}

// LastItem is the 1-based index of the last record on the page.
func (p Pagination) LastItem() int {
	last := p.Page * p.PerPage
	if last > p.Total {
		return p.Total
	}
	return last
}
