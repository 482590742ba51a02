package fixture

import "fmt"

// ConfigurationError reports an unusable factory configuration: an unresolvable
// relation name, a missing blueprint, an empty sequence, or a terminal operation
// invoked without a repository. Fluent configuration calls record the error on the
// derived factory; the terminal operation reports it without touching the store.
type ConfigurationError struct {
	EntityType string
	Relation   string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.EntityType != "" && e.Relation != "":
		return fmt.Sprintf("fixture configuration: %s relation %q: %s", e.EntityType, e.Relation, e.Reason)
	case e.EntityType != "":
		return fmt.Sprintf("fixture configuration: %s: %s", e.EntityType, e.Reason)
	default:
		return fmt.Sprintf("fixture configuration: %s", e.Reason)
	}
}

// NotFoundError reports a failed blueprint lookup in a Registry.
type NotFoundError struct {
	EntityType string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("fixture: no blueprint registered for entity type %q", e.EntityType)
}

// ResolutionError reports a failed attribute resolution: a producer returned an
// error, or nesting exceeded the depth bound (circular definition suspected).
type ResolutionError struct {
	EntityType string
	Field      string
	Reason     string
	Err        error
}

func (e *ResolutionError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("fixture: resolve %s.%s: %s", e.EntityType, e.Field, msg)
	}
	return fmt.Sprintf("fixture: resolve %s: %s", e.EntityType, msg)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PersistenceError wraps a repository failure with the entity type and, when the
// failure happened inside a relationship binding, the relation being processed.
type PersistenceError struct {
	EntityType string
	Relation   string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.Relation != "" {
		return fmt.Sprintf("fixture: persist %s (relation %q): %v", e.EntityType, e.Relation, e.Err)
	}
	return fmt.Sprintf("fixture: persist %s: %v", e.EntityType, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
