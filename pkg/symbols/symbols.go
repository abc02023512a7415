// Package symbols implements the canonical symbol form BASE-QUOTE-PERP and
// the per-venue bidirectional mappings between canonical and venue-native
// symbols. The canonical form is the only symbol that crosses a component
// boundary inside the core.
package symbols

import (
	"fmt"
	"strings"
)

// Suffix of every canonical perpetual symbol.
const perpSuffix = "-PERP"

// Canonical builds the canonical symbol for a base/quote pair,
// e.g. Canonical("BTC", "USDC") == "BTC-USDC-PERP".
func Canonical(base, quote string) string {
	return strings.ToUpper(base) + "-" + strings.ToUpper(quote) + perpSuffix
}

// IsCanonical reports whether s has the BASE-QUOTE-PERP shape.
func IsCanonical(s string) bool {
	if !strings.HasSuffix(s, perpSuffix) {
		return false
	}
	parts := strings.Split(strings.TrimSuffix(s, perpSuffix), "-")
	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

// Base returns the BASE component of a canonical symbol ("" if not canonical).
func Base(s string) string {
	if !IsCanonical(s) {
		return ""
	}
	return strings.SplitN(s, "-", 2)[0]
}

// Map is a bidirectional mapping between canonical symbols and one venue's
// native symbols. Both directions are exact string lookups; a Map is built
// once at startup and never mutated afterwards, so it is safe for concurrent
// readers.
type Map struct {
	toNative    map[string]string
	toCanonical map[string]string
}

// NewMap builds a Map from canonical -> native pairs. Duplicate native
// symbols are rejected because the reverse lookup would be ambiguous.
func NewMap(pairs map[string]string) (*Map, error) {
	m := &Map{
		toNative:    make(map[string]string, len(pairs)),
		toCanonical: make(map[string]string, len(pairs)),
	}
	for canonical, native := range pairs {
		if !IsCanonical(canonical) {
			return nil, fmt.Errorf("not a canonical symbol: %q", canonical)
		}
		if prev, ok := m.toCanonical[native]; ok {
			return nil, fmt.Errorf("native symbol %q maps to both %q and %q", native, prev, canonical)
		}
		m.toNative[canonical] = native
		m.toCanonical[native] = canonical
	}
	return m, nil
}

// Style names a rule for deriving a venue's native symbol from the canonical
// form. Venues with irregular listings use explicit pairs via NewMap instead.
type Style string

const (
	// StyleBase uses the bare base asset, e.g. BTC-USDC-PERP -> BTC.
	StyleBase Style = "base"
	// StyleBaseUSD appends USD to the base, e.g. BTC-USDC-PERP -> BTCUSD.
	StyleBaseUSD Style = "baseusd"
	// StyleCanonical passes the canonical symbol through unchanged.
	StyleCanonical Style = "canonical"
)

// NewStyleMap derives a Map for the given watch list using a naming style.
func NewStyleMap(style Style, canonicals []string) (*Map, error) {
	pairs := make(map[string]string, len(canonicals))
	for _, c := range canonicals {
		if !IsCanonical(c) {
			return nil, fmt.Errorf("not a canonical symbol: %q", c)
		}
		switch style {
		case StyleBase:
			pairs[c] = Base(c)
		case StyleBaseUSD:
			pairs[c] = Base(c) + "USD"
		case StyleCanonical:
			pairs[c] = c
		default:
			return nil, fmt.Errorf("unknown symbol style %q", style)
		}
	}
	return NewMap(pairs)
}

// ToNative translates a canonical symbol to the venue-native form.
func (m *Map) ToNative(canonical string) (string, bool) {
	native, ok := m.toNative[canonical]
	return native, ok
}

// ToCanonical translates a venue-native symbol to the canonical form.
func (m *Map) ToCanonical(native string) (string, bool) {
	canonical, ok := m.toCanonical[native]
	return canonical, ok
}

// Canonicals returns all canonical symbols known to the map.
func (m *Map) Canonicals() []string {
	out := make([]string, 0, len(m.toNative))
	for c := range m.toNative {
		out = append(out, c)
	}
	return out
}
