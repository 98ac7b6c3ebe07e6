package query

// Derivation is one term within bounded typo distance of a query term,
// discovered by a tolerant lookup against the terms automaton.
type Derivation struct {
	Term     string
	Distance int
}

// DerivationSource computes the derivations of term within maxTypos
// edits, optionally restricted to the prefix-tolerant tables. The
// automaton walk itself (the terms FST, Levenshtein construction) is
// the indexer's concern and out of scope here; this is the seam the
// ranking core calls through.
type DerivationSource interface {
	Derive(term string, maxTypos int, prefix bool) ([]Derivation, error)
}

type derivationKey struct {
	term     string
	maxTypos int
	prefix   bool
}

// DerivationsCache memoizes DerivationSource.Derive calls for the
// lifetime of one search call. It is owned by the finalizer and
// borrowed mutably by each Next() cascade; it is never shared across
// concurrent search calls.
type DerivationsCache struct {
	source  DerivationSource
	entries map[derivationKey][]Derivation
}

// NewDerivationsCache wraps source with per-call memoization.
func NewDerivationsCache(source DerivationSource) *DerivationsCache {
	return &DerivationsCache{source: source, entries: make(map[derivationKey][]Derivation)}
}

// Derivations returns the (possibly cached) derivations of term within
// maxTypos edits.
func (c *DerivationsCache) Derivations(term string, maxTypos int, prefix bool) ([]Derivation, error) {
	key := derivationKey{term: term, maxTypos: maxTypos, prefix: prefix}
	if v, ok := c.entries[key]; ok {
		return v, nil
	}
	v, err := c.source.Derive(term, maxTypos, prefix)
	if err != nil {
		return nil, err
	}
	c.entries[key] = v
	return v, nil
}
