// Package catalogue provides concrete Catalogue adapters: an in-memory
// one for tests and the CLI's --dev mode, and a Postgres-backed one for
// real deployments. The routing package defines the Catalogue interface
// itself; this package only has to satisfy it.
package catalogue

import "github.com/vitaliisemenov/streamrouter/internal/business/routing"

var (
	_ routing.Catalogue = (*MemoryCatalogue)(nil)
	_ routing.Catalogue = (*PostgresCatalogue)(nil)
)
