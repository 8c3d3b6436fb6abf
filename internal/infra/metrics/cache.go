package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"content-entitlement/internal/domain/model"
)

func init() { register(catalogLookupsTotal) }

// Catalog lookup outcomes.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

var catalogLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_cache_lookups_total",
		Help: "Catalog reads served from Redis, by item kind and outcome.",
	},
	[]string{"kind", "result"}, // result=hit|miss|error
)

// IncCatalogLookup counts one cached catalog read. A Redis failure is an
// error, not a miss.
func IncCatalogLookup(kind model.ItemKind, result string) {
	catalogLookupsTotal.WithLabelValues(norm(string(kind)), norm(result)).Inc()
}
