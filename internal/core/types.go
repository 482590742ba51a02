package core

import "seedcore/pkg/fixture"

type (
	Entity     = fixture.Entity
	Collection = fixture.Collection
	Values     = fixture.Values
	Factory    = fixture.Factory
	Registry   = fixture.Registry
	Repository = fixture.Repository
	Blueprint  = fixture.Blueprint
	JoinRecord = fixture.JoinRecord
	Violation  = fixture.Violation
)
