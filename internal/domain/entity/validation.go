package entity

import "fmt"

// Validate checks that the declaration names everything its kind needs.
// Errors wrap ErrInvalidRelation and a *ValidationError naming the field.
func (r Relation) Validate() error {
	if r.SrcCollection == "" {
		return invalid("src_collection", "required")
	}
	if r.DestCollection == "" {
		return invalid("dest_collection", "required")
	}

	switch r.Kind {
	case KindSimple, KindFile:
		if r.DestField == "" {
			return invalid("dest_field", fmt.Sprintf("required for %s relations", r.Kind))
		}
		if r.Junction != nil {
			return invalid("junction", fmt.Sprintf("not allowed for %s relations", r.Kind))
		}
	case KindJunction:
		if r.Junction == nil {
			return invalid("junction", "required for junction relations")
		}
		if r.Junction.Table == "" {
			return invalid("junction.table", "required")
		}
		if r.Junction.SrcField == "" || r.Junction.DestField == "" {
			return invalid("junction.fields", "both foreign key fields are required")
		}
	default:
		return invalid("kind", fmt.Sprintf("unknown kind %s", r.Kind))
	}
	return nil
}

func invalid(field, message string) error {
	return fmt.Errorf("%w: %w", ErrInvalidRelation, &ValidationError{Field: field, Message: message})
}
