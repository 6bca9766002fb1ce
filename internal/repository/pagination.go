package repository

import "gorm.io/gorm"

// Page selects one window of a list query. Zero PageSize means no limit.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) apply(query *gorm.DB) *gorm.DB {
	if p.PageSize <= 0 {
		return query
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	return query.Offset((page - 1) * p.PageSize).Limit(p.PageSize)
}
