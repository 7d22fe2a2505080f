package utils

import (
	"math"
	"strconv"

	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

type Pagination struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

const (
	defaultSize = 10
	maxSize     = 100
)

func (p *Pagination) SetSize(querySize string) error {
	if querySize == "" {
		p.Size = defaultSize
		return nil
	}
	size, err := strconv.Atoi(querySize)
	if err != nil || size < 1 {
		return apperrors.NewValidation("size", "must be a positive integer")
	}
	if size > maxSize {
		size = maxSize
	}
	p.Size = size
	return nil
}

func (p *Pagination) SetPage(queryPage string) error {
	if queryPage == "" {
		p.Page = 1
		return nil
	}
	page, err := strconv.Atoi(queryPage)
	if err != nil || page < 1 {
		return apperrors.NewValidation("page", "must be a positive integer")
	}
	p.Page = page
	return nil
}

func (p *Pagination) GetOffset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

func (p *Pagination) GetLimit() int {
	return p.Size
}

func GetPaginationFromCtx(c echo.Context) (*Pagination, error) {
	p := &Pagination{}
	if err := p.SetSize(c.QueryParam("size")); err != nil {
		return nil, err
	}
	if err := p.SetPage(c.QueryParam("page")); err != nil {
		return nil, err
	}
	return p, nil
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	Size       int  `json:"size"`
	TotalCount int  `json:"total_count"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

func NewPage[T any](items []T, p *Pagination, totalCount int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		TotalCount: totalCount,
		TotalPages: GetTotalPages(totalCount, p.Size),
		HasMore:    p.Page*p.Size < totalCount,
	}
}

func GetTotalPages(totalCount int, pageSize int) int {
	if pageSize == 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(pageSize)))
}
