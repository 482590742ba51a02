// Package fixture builds and persists graphs of related test/seed entities from
// declarative blueprints. A Blueprint describes the default attribute shape of one
// entity type; a Factory layers call-time overrides, states, sequences and
// relationship bindings on top and resolves the graph through terminal operations
// (Raw, Make, Create). Persistence is delegated to a Repository implementation.
package fixture
