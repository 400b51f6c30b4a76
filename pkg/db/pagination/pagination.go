// Package pagination implements opaque cursor tokens for list
// endpoints. Snowflake IDs are time-ordered, so a cursor is just the
// ID of the last row on the previous page.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrInvalidToken = errors.New("invalid_page_token")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination carries the list-window parameters bound from the query
// string.
type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Limit clamps PageSize into the allowed window.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	if p.PageSize > maxPageSize {
		return maxPageSize
	}
	return p.PageSize
}

// Cursor marks the position after the last row of a page.
type Cursor struct {
	ID snowflake.ID `json:"id"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(c Cursor) string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func DecodeCursor(token string) (*Cursor, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// BuildPage trims an overfetched result (limit+1 rows queried) to the
// page and reports whether more rows follow.
func BuildPage[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, PageInfo) {
	if len(rows) <= limit {
		return rows, PageInfo{}
	}
	rows = rows[:limit]
	return rows, PageInfo{
		HasMore:       true,
		NextPageToken: EncodeCursor(cursorOf(rows[len(rows)-1])),
	}
}
