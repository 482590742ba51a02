package fixture

import "sort"

// Producer defers a field value until resolution time. It receives a copy of the
// accumulator holding every field resolved so far for the same record, in
// declaration order: a later producer may read an earlier field's resolved value,
// never the other way around.
type Producer func(Values) (any, error)

// Attr is one field of a definition. Value is a literal, a Producer (or a bare
// func(Values) (any, error) / func(Values) any), or a nested *Factory resolved as a
// sub-record before substitution.
type Attr struct {
	Name  string
	Value any
}

// Definition is the ordered default attribute shape of an entity type. Evaluation
// order is declaration order.
type Definition []Attr

// mergeOverride layers an override set onto an ordered definition in place:
// existing fields are replaced at their declared position, new fields are appended
// in sorted name order for determinism.
func mergeOverride(def Definition, over Values) Definition {
	if len(over) == 0 {
		return def
	}
	index := make(map[string]int, len(def))
	for i, a := range def {
		index[a.Name] = i
	}
	var extra []string
	for name := range over {
		if i, ok := index[name]; ok {
			def[i].Value = over[name]
		} else {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		def = append(def, Attr{Name: name, Value: over[name]})
	}
	return def
}

// rawValues snapshots the current (possibly still deferred) attribute layer as a
// Values map, for handing to state producers.
func rawValues(def Definition) Values {
	out := make(Values, len(def))
	for _, a := range def {
		out[a.Name] = a.Value
	}
	return out
}
