// Package result holds one page of ranked search output.
package result

import "github.com/kailas-cloud/prodsearch/internal/domain/product"

// Page is a ranked page of products. Pages are shared through the result
// cache, so the item slice must not be modified.
type Page struct {
	items  []product.Scored
	total  int
	limit  int
	offset int
	cached bool
}

// New creates a page. A nil items slice is stored as empty.
func New(items []product.Scored, total, limit, offset int) Page {
	if items == nil {
		items = []product.Scored{}
	}
	return Page{items: items, total: total, limit: limit, offset: offset}
}

// Items returns the ranked items.
func (p *Page) Items() []product.Scored { return p.items }

// Total returns the full match count before pagination.
func (p *Page) Total() int { return p.total }

// Count returns the number of items on this page.
func (p *Page) Count() int { return len(p.items) }

// Limit returns the requested page size.
func (p *Page) Limit() int { return p.limit }

// Offset returns the requested page offset.
func (p *Page) Offset() int { return p.offset }

// Cached reports whether the page was served from the result cache.
func (p *Page) Cached() bool { return p.cached }

// FromCache returns a copy flagged as a cache hit.
func (p *Page) FromCache() Page {
	c := *p
	c.cached = true
	return c
}
