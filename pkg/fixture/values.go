package fixture

// Values is a field-name to value mapping. Producers receive the accumulator of
// already-resolved fields as a Values copy; mutating it does not affect resolution.
type Values map[string]any

// Clone returns a shallow copy of the values.
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge returns a copy of v with over layered on top (over wins on collision).
func (v Values) Merge(over Values) Values {
	out := make(Values, len(v)+len(over))
	for k, val := range v {
		out[k] = val
	}
	for k, val := range over {
		out[k] = val
	}
	return out
}
