package application

import (
	"encoding/json"
	"fmt"

	apperrors "compound-site/internal/common/errors"
)

var ErrFieldKindMismatch = apperrors.Sentinel(apperrors.ErrCodeFieldKindMismatch, "Operation does not match the field kind")

// Draft holds the applicant's answers. Values are immutable: every edit returns
// a new Draft and leaves the receiver untouched.
type Draft struct {
	scalars map[Field]string
	sets    map[Field][]string
}

// NewDraft returns a draft with every scalar empty and every set empty.
func NewDraft() Draft {
	return Draft{
		scalars: map[Field]string{},
		sets:    map[Field][]string{},
	}
}

// Scalar returns the current value of a scalar field, "" when unset.
func (d Draft) Scalar(f Field) string {
	return d.scalars[f]
}

// Set returns the tags of a set field in insertion order.
func (d Draft) Set(f Field) []string {
	tags := d.sets[f]
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// Has reports whether tag is in the set field f.
func (d Draft) Has(f Field, tag string) bool {
	for _, t := range d.sets[f] {
		if t == tag {
			return true
		}
	}
	return false
}

func (d Draft) clone() Draft {
	out := Draft{
		scalars: make(map[Field]string, len(d.scalars)),
		sets:    make(map[Field][]string, len(d.sets)),
	}
	for f, v := range d.scalars {
		out.scalars[f] = v
	}
	for f, tags := range d.sets {
		out.sets[f] = append([]string(nil), tags...)
	}
	return out
}

// SetScalarField overwrites a scalar field. No validation or coercion is applied.
func SetScalarField(d Draft, f Field, value string) (Draft, error) {
	if !f.Valid() {
		return d, apperrors.NewUnknownFieldError(f.String())
	}
	if f.Kind() != KindScalar {
		return d, fmt.Errorf("%w: %s is a %s field", ErrFieldKindMismatch, f, f.Kind())
	}
	out := d.clone()
	out.scalars[f] = value
	return out, nil
}

// ToggleSetField removes tag from the set field f if present and adds it otherwise.
func ToggleSetField(d Draft, f Field, tag string) (Draft, error) {
	if !f.Valid() {
		return d, apperrors.NewUnknownFieldError(f.String())
	}
	if f.Kind() != KindSet {
		return d, fmt.Errorf("%w: %s is a %s field", ErrFieldKindMismatch, f, f.Kind())
	}
	out := d.clone()
	tags := out.sets[f]
	for i, t := range tags {
		if t == tag {
			out.sets[f] = append(tags[:i:i], tags[i+1:]...)
			return out, nil
		}
	}
	out.sets[f] = append(tags, tag)
	return out, nil
}

// Map renders the draft as the flat record sent to the form endpoint. Every field
// is present; sets are never nil.
func (d Draft) Map() map[string]interface{} {
	m := make(map[string]interface{}, int(lastField))
	for _, f := range Fields() {
		switch f.Kind() {
		case KindScalar:
			m[f.Key()] = d.scalars[f]
		case KindSet:
			m[f.Key()] = d.Set(f)
		}
	}
	return m
}

func (d Draft) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// UnmarshalJSON accepts the flat record. Unknown keys are ignored, missing keys
// stay empty.
func (d *Draft) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := NewDraft()
	for key, value := range raw {
		f, err := ParseField(key)
		if err != nil {
			continue
		}
		switch f.Kind() {
		case KindScalar:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			if s != "" {
				out.scalars[f] = s
			}
		case KindSet:
			var tags []string
			if err := json.Unmarshal(value, &tags); err != nil {
				return fmt.Errorf("field %s: %w", key, err)
			}
			if len(tags) > 0 {
				out.sets[f] = tags
			}
		}
	}
	*d = out
	return nil
}

// Equal reports whether two drafts hold the same answers. Set order is ignored.
func (d Draft) Equal(o Draft) bool {
	for _, f := range Fields() {
		switch f.Kind() {
		case KindScalar:
			if d.scalars[f] != o.scalars[f] {
				return false
			}
		case KindSet:
			a, b := d.sets[f], o.sets[f]
			if len(a) != len(b) {
				return false
			}
			for _, tag := range a {
				if !o.Has(f, tag) {
					return false
				}
			}
		}
	}
	return true
}
