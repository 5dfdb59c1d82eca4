// Package uri builds OData v2 resource and function-import URIs for the
// Change Management service.
//
// Addressing forms:
//
//	{root}/Changes('8000038673')                 entity by key
//	{root}/Changes('8000038673')/Transports      navigation property
//	{root}/Files(TransportID='A',FileID='b.txt') composite key
//	{root}/createTransport?ChangeID='8000038673' function import
//	{root}/$metadata                             service metadata
//
// Building a URI never performs I/O. A malformed key only surfaces as an
// error once the resulting URI is requested.
package uri

import (
	"strings"
)

// Mode controls how string values are embedded into key predicates and
// function-import query fragments.
type Mode int

const (
	// LiteralCompat splices values verbatim between single quotes. A value
	// containing ' or & corrupts the resulting literal.
	LiteralCompat Mode = iota

	// LiteralEscaped doubles embedded single quotes and percent-encodes each
	// value on its own, so that no value can end its key predicate or query
	// parameter. Rendered keys and queries are already URI-safe and are not
	// escaped again.
	LiteralEscaped
)

// Param is one name/value pair of a key predicate or function-import query.
type Param struct {
	Name  string
	Value string
}

// P is shorthand for constructing a Param.
func P(name, value string) Param {
	return Param{Name: name, Value: value}
}

// Builder constructs URIs relative to an immutable service root.
type Builder struct {
	root string
	mode Mode
}

// New returns a Builder for root. Trailing slashes are dropped so that
// "https://host/sap/opu/odata/SAP/SERVICE/" and ".../SERVICE" are equivalent.
func New(root string, mode Mode) *Builder {
	return &Builder{root: strings.TrimRight(root, "/"), mode: mode}
}

// Root returns the normalised service root.
func (b *Builder) Root() string { return b.root }

// Mode returns the literal quoting mode of the builder.
func (b *Builder) Mode() Mode { return b.mode }

// Entity returns root/set(key). key is inserted as given; use Key or
// CompositeKey to render a quoted predicate.
func (b *Builder) Entity(set, key string) string {
	return b.root + "/" + set + "(" + key + ")"
}

// Navigation returns root/set(key)/nav.
func (b *Builder) Navigation(set, key, nav string) string {
	return b.Entity(set, key) + "/" + nav
}

// Metadata returns root/$metadata.
func (b *Builder) Metadata() string {
	return b.root + "/$metadata"
}

// FunctionCall returns root/name followed by query, passed through Escape.
func (b *Builder) FunctionCall(name, query string) string {
	return b.root + "/" + name + b.Escape(query)
}

// Escape applies the single fragment-escape pass to a rendered key or
// query. In LiteralEscaped mode the values were encoded as they were
// rendered, and s is returned unchanged.
func (b *Builder) Escape(s string) string {
	if b.mode == LiteralEscaped {
		return s
	}
	return EscapeFragment(s)
}

// Key renders a single string key predicate: 'value'.
func (b *Builder) Key(value string) string {
	return "'" + b.literal(value, false) + "'"
}

// CompositeKey renders A='x',B='y'.
func (b *Builder) CompositeKey(params ...Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + "='" + b.literal(p.Value, false) + "'"
	}
	return strings.Join(parts, ",")
}

// Query renders ?A='x'&B='y' for a function import. An empty params list
// yields an empty string.
func (b *Builder) Query(params ...Param) string {
	if len(params) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, p := range params {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(p.Name)
		sb.WriteString("='")
		sb.WriteString(b.literal(p.Value, true))
		sb.WriteByte('\'')
	}
	return sb.String()
}

func (b *Builder) literal(v string, inQuery bool) string {
	if b.mode == LiteralCompat {
		return v
	}
	v = strings.ReplaceAll(v, "'", "''")
	if inQuery {
		return escape(v, querySafe)
	}
	return escape(v, keySafe)
}
