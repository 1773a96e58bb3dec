// Package activation supplies the single activate(type) → instance hook
// named in the core's Non-goals, plus a helper for decoding a job's
// loosely-typed payload into a handler's strongly typed arguments.
package activation

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Activator builds a handler instance for a registered Go type. It is
// deliberately narrow: no container, no lifetime management, just the one
// hook the core is allowed to depend on.
type Activator func(t reflect.Type) (any, error)

// NewReflectActivator returns an Activator that instantiates a zero value
// of t (or of the pointed-to type, if t is a pointer type).
func NewReflectActivator() Activator {
	return func(t reflect.Type) (any, error) {
		if t == nil {
			return nil, fmt.Errorf("activation: nil type")
		}
		if t.Kind() == reflect.Pointer {
			return reflect.New(t.Elem()).Interface(), nil
		}
		return reflect.New(t).Elem().Interface(), nil
	}
}

// DecodePayload decodes a job's loosely-typed Payload() (as it would have
// arrived after deserialization from storage) into out, which must be a
// pointer to a struct. This is argument decoding for a statically-known
// handler signature, not the "serialization/reflection of job method
// invocations" the core excludes.
func DecodePayload(payload any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("activation: build payload decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return fmt.Errorf("activation: decode payload: %w", err)
	}
	return nil
}
