package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeArgs binds a step's evaluated arguments onto a handler input struct.
// Target must be a pointer to a struct whose fields carry `hcl:"name"` or
// `hcl:"name,optional"` tags. A missing non-optional argument and an unknown
// argument are both errors, so typos in a pipeline definition fail the load
// rather than silently running with defaults.
func DecodeArgs(args map[string]cty.Value, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must be a pointer to struct, got %T", target)
	}

	structVal := v.Elem()
	structType := structVal.Type()
	known := make(map[string]struct{}, structType.NumField())

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag := field.Tag.Get("hcl")
		if tag == "" {
			continue
		}
		parts := strings.Split(tag, ",")
		name := parts[0]
		optional := len(parts) > 1 && parts[1] == "optional"
		known[name] = struct{}{}

		val, ok := args[name]
		if !ok || val.IsNull() {
			if optional {
				continue
			}
			return fmt.Errorf("missing required argument %q", name)
		}

		fieldVal := structVal.Field(i)
		if !fieldVal.CanSet() {
			return fmt.Errorf("argument %q maps to unexported field %s", name, field.Name)
		}

		// HCL evaluates list literals to tuples; convert to the field's
		// implied type first, the same way gohcl binds attributes.
		want, err := gocty.ImpliedType(fieldVal.Addr().Interface())
		if err != nil {
			return fmt.Errorf("argument %q: unsupported field type %s: %w", name, field.Type, err)
		}
		converted, err := convert.Convert(val, want)
		if err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
		if err := gocty.FromCtyValue(converted, fieldVal.Addr().Interface()); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}

	for name := range args {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown argument %q", name)
		}
	}
	return nil
}
