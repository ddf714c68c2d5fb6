package qb

import "strings"

// bindMarker is the internal token builders emit for every bind value. It
// is a control byte that cannot occur in legitimate SQL text, so trusted
// raw fragments containing "?" (the Postgres jsonb operator, string
// literals) are never reinterpreted. Markers survive nested splicing in
// marker form and are rewritten exactly once, at the outermost Assemble.
const bindMarker = "\x00"

// finalize rewrites successive bind markers into the dialect's placeholder
// syntax, numbering them in occurrence order.
func finalize(sql string, d Dialect) string {
	var out strings.Builder
	out.Grow(len(sql) + 16)
	n := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == bindMarker[0] {
			n++
			out.WriteString(d.Placeholder(n))
			continue
		}
		out.WriteByte(sql[i])
	}
	return out.String()
}
