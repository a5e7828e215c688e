package storage

import (
	"strconv"
	"strings"
)

// Dialect names a database/sql driver and its placeholder style.
type Dialect struct {
	Name       string
	DriverName string
	// Numbered placeholders ($1, $2) instead of ?
	Numbered bool
}

var (
	SQLite   = Dialect{Name: "sqlite", DriverName: "sqlite"}
	Postgres = Dialect{Name: "postgres", DriverName: "postgres", Numbered: true}
)

// Rebind rewrites ? placeholders for dialects that number them.
// Queries in this package never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
