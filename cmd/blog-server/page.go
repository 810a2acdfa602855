package main

import (
	"fmt"
	"strconv"
)

const defaultPageSize = 10

// Page describes one page of a paginated listing.
type Page struct {
	ItemCount   int  `json:"item_count"`
	PageIndex   int  `json:"page_index"`
	PageSize    int  `json:"page_size"`
	PageCount   int  `json:"page_count"`
	Offset      int  `json:"offset"`
	Limit       int  `json:"limit"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

func newPage(itemCount, pageIndex, pageSize int) Page {
	p := Page{ItemCount: itemCount, PageSize: pageSize}
	p.PageCount = itemCount / pageSize
	if itemCount%pageSize > 0 {
		p.PageCount++
	}
	if itemCount == 0 || pageIndex > p.PageCount {
		p.PageIndex = 1
	} else {
		p.PageIndex = pageIndex
		p.Offset = pageSize * (pageIndex - 1)
		p.Limit = pageSize
	}
	p.HasNext = p.PageIndex < p.PageCount
	p.HasPrevious = p.PageIndex > 1
	return p
}

// pageIndex parses the page query parameter. Missing or non-positive values
// select the first page.
func pageIndex(s string) (int, error) {
	if s == "" {
		return 1, nil
	}
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid page %q", s)
	}
	if p < 1 {
		p = 1
	}
	return p, nil
}

// toCount converts the result of a count(...) expression, which drivers
// report as an integer or as its decimal text.
func toCount(v interface{}) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
