// Package sqlboiler holds the sqlboiler query models for the storefront
// tables the realtime service reads.
package sqlboiler

import (
	"github.com/aarondl/sqlboiler/v4/drivers"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/queries/qm"
)

var dialect = drivers.Dialect{
	LQ:                   0x22,
	RQ:                   0x22,
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

// NewQuery initializes a new Query using the passed in QueryMods.
func NewQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)

	return q
}
