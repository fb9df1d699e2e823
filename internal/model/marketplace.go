package model

import (
	"slices"
	"strings"
)

// ScopeAll is the wildcard marketplace scope.
const ScopeAll = "all"

// Known marketplace identifiers. Any other identifier is kept as free text.
const (
	MarketplaceShopee       = "shopee"
	MarketplaceMercadoLivre = "mercado_livre"
	MarketplaceMagalu       = "magalu"
)

// KnownMarketplaces returns the marketplaces a rule applies to when its scope is "all".
func KnownMarketplaces() []string {
	return []string{MarketplaceShopee, MarketplaceMercadoLivre, MarketplaceMagalu}
}

// NormalizeScope lowercases and trims a processing scope. Empty means all.
func NormalizeScope(scope string) string {
	s := strings.ToLower(strings.TrimSpace(scope))
	if s == "" {
		return ScopeAll
	}
	return s
}

// NormalizeMarketplaces trims, lowercases and dedupes marketplace identifiers.
// An empty list, or one containing "all", expands to every known marketplace.
func NormalizeMarketplaces(in []string) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || slices.Contains(out, m) {
			continue
		}
		if m == ScopeAll {
			return KnownMarketplaces()
		}
		out = append(out, m)
	}
	if len(out) == 0 {
		return KnownMarketplaces()
	}
	return out
}

// CoversAllMarketplaces reports whether a marketplace list spans every known marketplace.
func CoversAllMarketplaces(marketplaces []string) bool {
	for _, m := range KnownMarketplaces() {
		if !slices.Contains(marketplaces, m) {
			return false
		}
	}
	return true
}

// MarketplacesOverlap reports whether two scopes share at least one marketplace.
// An empty scope is treated as covering everything.
func MarketplacesOverlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, m := range a {
		if m == ScopeAll || slices.Contains(b, m) || slices.Contains(b, ScopeAll) {
			return true
		}
	}
	return false
}

// MergeMarketplaces returns the union of two scopes, order of first appearance kept.
func MergeMarketplaces(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, m := range append(slices.Clone(a), b...) {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return out
}
