package region

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is. Each typed error below unwraps to
// its sentinel.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrLocked             = errors.New("region is locked")
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// ValidationError reports a malformed or missing field. The operation was not attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports that a referenced entity is absent. Key is the lookup key.
type NotFoundError struct {
	Kind string // "region" or "layer"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// LockedRegionError reports a mutation attempted on a locked region.
type LockedRegionError struct {
	ID   string
	Name string
}

func (e *LockedRegionError) Error() string {
	return fmt.Sprintf("region %q is locked and cannot be modified", e.Name)
}

func (e *LockedRegionError) Unwrap() error { return ErrLocked }

// GeometryDegenerateError reports an edit that would leave a shape with too few vertices.
type GeometryDegenerateError struct {
	ID       string
	Vertices int
	Minimum  int
}

func (e *GeometryDegenerateError) Error() string {
	return fmt.Sprintf("region %q would have %d vertices, minimum is %d", e.ID, e.Vertices, e.Minimum)
}

func (e *GeometryDegenerateError) Unwrap() error { return ErrDegenerateGeometry }

func regionNotFound(id string) error { return &NotFoundError{Kind: "region", Key: id} }
func layerNotFound(id string) error  { return &NotFoundError{Kind: "layer", Key: id} }
