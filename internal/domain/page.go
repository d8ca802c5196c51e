package domain

// Page describes one page of an in-memory paginated listing.
type Page struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	MaxPage int `json:"max_page"`
}

// NewPage computes the page envelope for a listing of total items.
func NewPage(total, page, perPage int) Page {
	maxPage := (total + perPage - 1) / perPage
	if maxPage < 1 {
		maxPage = 1
	}
	return Page{Total: total, Page: page, PerPage: perPage, MaxPage: maxPage}
}
