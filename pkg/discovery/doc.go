// Package discovery maintains a catalog of known tools and the
// capability classes each one provides. The catalog is populated by
// explicit registration or by probing the local PATH for common CLI
// tools, and is consumed read-only by the recommendation engine.
package discovery
