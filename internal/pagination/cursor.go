package pagination

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// Direction selects which way a cursor walk moves through the order column
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// ParseDirection normalizes a query-string direction, defaulting to next
func ParseDirection(s string) Direction {
	if Direction(s) == DirectionPrev {
		return DirectionPrev
	}
	return DirectionNext
}

// EncodeCursor serializes a sort-key value into an opaque URL-safe token.
// The payload is a single-key JSON object so the format stays stable if
// more fields are ever added.
func EncodeCursor(value any) string {
	b, err := json.Marshal(map[string]any{"value": value})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor reverses EncodeCursor. Any parse failure (tampered token,
// bad encoding, wrong payload) yields an empty map: pagination degrades to
// an unfiltered first page rather than failing the request. Numeric values
// come back as int64 when they fit, float64 otherwise, so they round-trip
// and bind correctly as SQL parameters.
func DecodeCursor(cursor string) map[string]any {
	empty := map[string]any{}
	if cursor == "" {
		return empty
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return empty
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil || payload == nil {
		return empty
	}
	for k, v := range payload {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				payload[k] = i
			} else if f, err := n.Float64(); err == nil {
				payload[k] = f
			}
		}
	}
	return payload
}

// CursorPage is a cursor-paginated result slice. HasPrevious reflects
// whether the caller supplied a usable cursor, not whether rows actually
// exist behind it.
type CursorPage[T any] struct {
	Items       []T    `json:"items"`
	NextCursor  string `json:"next_cursor,omitempty"`
	PrevCursor  string `json:"prev_cursor,omitempty"`
	HasNext     bool   `json:"has_next"`
	HasPrevious bool   `json:"has_previous"`
}

// CursorPaginate walks the query by an opaque cursor over column. The
// column must be unique and totally ordered (primary key, or timestamp
// with a tiebreak); ties on a non-unique column can skip or duplicate rows
// and guarding against that is the caller's responsibility.
//
// It fetches limit+1 rows to detect a further page without a count query,
// trimming the extra row before returning. key extracts the order-column
// value from an item so continuation cursors can be built.
func CursorPaginate[T any](query *gorm.DB, cursor string, limit int, column string, dir Direction, key func(T) any) (*CursorPage[T], error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	hadCursor := false
	if v, ok := DecodeCursor(cursor)["value"]; ok {
		hadCursor = true
		if dir == DirectionPrev {
			query = query.Where(fmt.Sprintf("%s < ?", column), v)
		} else {
			query = query.Where(fmt.Sprintf("%s > ?", column), v)
		}
	}

	order := fmt.Sprintf("%s ASC", column)
	if dir == DirectionPrev {
		order = fmt.Sprintf("%s DESC", column)
	}

	items := []T{}
	if err := query.Order(order).Limit(limit + 1).Find(&items).Error; err != nil {
		return nil, err
	}

	page := &CursorPage[T]{
		HasNext:     len(items) > limit,
		HasPrevious: hadCursor,
	}
	if page.HasNext {
		items = items[:limit]
	}
	page.Items = items

	if page.HasNext && len(items) > 0 {
		page.NextCursor = EncodeCursor(key(items[len(items)-1]))
	}
	if hadCursor && len(items) > 0 {
		page.PrevCursor = EncodeCursor(key(items[0]))
	}
	return page, nil
}
