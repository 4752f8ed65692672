package unescape

import (
	"fmt"
	"reflect"
	"sync"
)

// InvalidTargetError is returned by UnescapeInto if the target is not a non-nil pointer.
type InvalidTargetError struct {
	Type reflect.Type
}

func (e InvalidTargetError) Error() string {
	switch {
	case e.Type == nil:
		return "target is nil"
	case e.Type.Kind() != reflect.Pointer:
		return fmt.Sprintf("target of type %q is not a pointer", e.Type)
	default:
		return fmt.Sprintf("target of type %q is a nil pointer", e.Type)
	}
}

// UnescapeInto decodes every string reachable from target in place, using the
// default Decoder. See Decoder.UnescapeInto.
func UnescapeInto(target any) error {
	return dec.UnescapeInto(target)
}

// An unescaper decodes all strings reachable from the given value in place.
// The value must be settable.
type unescaper func(reflect.Value) error

// A set of types that are currently in construction
type typeSet map[reflect.Type]struct{}

// The default Decoder instance.
var dec Decoder

// Decoder walks go values and decodes the strings within. A Decoder caches the
// work done per type and is safe for concurrent use.
type Decoder struct {
	// the struct tag that is used
	structTag string

	// Cache for unescapers, indexed by reflect.Type
	unescaperCache sync.Map
}

func NewDecoder() *Decoder {
	return &Decoder{
		structTag: "unescape",
	}
}

// WithTag returns a Decoder that reads struct tags with the given key.
// A field tagged with "-" is skipped.
func (d *Decoder) WithTag(structTag string) *Decoder {
	if d.structTag == structTag {
		return d
	}

	return &Decoder{
		structTag: structTag,
	}
}

// UnescapeInto decodes every string reachable from target in place. target must be
// a non-nil pointer.
//
// Strings are decoded using Unescape. Pointers are followed if they are not nil.
// Exported struct fields are visited, including fields promoted from embedded structs
// and from non-nil embedded struct pointers.
// Elements of slices and arrays are visited, as are the values of maps. Map keys are
// left as they are, values stored under a key that is not equal to itself (NaN) are
// skipped. Values of any other kind, including interfaces, are ignored.
//
// Decoding stops at the first malformed string. The returned error matches
// ErrMalformedEscape and names the path to the string. Strings visited before the
// failure are already decoded at that point.
//
// Cyclic pointer structures are not supported.
func (d *Decoder) UnescapeInto(target any) error {
	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Pointer || targetValue.IsNil() {
		return InvalidTargetError{Type: reflect.TypeOf(target)}
	}

	targetValue = targetValue.Elem()

	unescaper := d.unescaperOf(typeSet{}, targetValue.Type())
	return unescaper(targetValue)
}

func (d *Decoder) unescaperOf(inConstruction typeSet, ty reflect.Type) unescaper {
	if cached, ok := d.unescaperCache.Load(ty); ok {
		return cached.(unescaper)
	}

	if _, ok := inConstruction[ty]; ok {
		// detected a recursive type. return an unescaper that does a cache lookup when executed.
		// the actual unescaper is in the cache once the outer construction finished.
		lazyUnescaper := func(target reflect.Value) error {
			if cached, ok := d.unescaperCache.Load(ty); ok {
				return cached.(unescaper)(target)
			}

			// another goroutine still constructs it
			return d.unescaperOf(typeSet{}, ty)(target)
		}

		return lazyUnescaper
	}

	inConstruction[ty] = struct{}{}

	unescaper := d.makeUnescaperOf(inConstruction, ty)

	d.unescaperCache.Store(ty, unescaper)

	return unescaper
}

func (d *Decoder) makeUnescaperOf(inConstruction typeSet, ty reflect.Type) unescaper {
	switch ty.Kind() {
	case reflect.String:
		return unescapeString

	case reflect.Pointer:
		return d.makeUnescapePointer(inConstruction, ty)

	case reflect.Struct:
		return d.makeUnescapeStruct(inConstruction, ty)

	case reflect.Slice, reflect.Array:
		return d.makeUnescapeElements(inConstruction, ty)

	case reflect.Map:
		return d.makeUnescapeMap(inConstruction, ty)

	default:
		return skip
	}
}

func (d *Decoder) makeUnescapeStruct(inConstruction typeSet, ty reflect.Type) unescaper {
	structTag := d.structTag
	if structTag == "" {
		structTag = "unescape"
	}

	fields := visibleFields(ty, structTag)

	var unescapers []unescaper
	for _, field := range fields {
		unescapers = append(unescapers, d.unescaperOf(inConstruction, field.Type))
	}

	return func(target reflect.Value) error {
		for idx, field := range fields {
			fieldValue, err := target.FieldByIndexErr(field.Index)
			if err != nil {
				// promoted through a nil embedded pointer
				continue
			}

			if err := unescapers[idx](fieldValue); err != nil {
				return fmt.Errorf("field %q: %w", field.Name, err)
			}
		}

		return nil
	}
}

func (d *Decoder) makeUnescapeElements(inConstruction typeSet, ty reflect.Type) unescaper {
	elementUnescaper := d.unescaperOf(inConstruction, ty.Elem())

	return func(target reflect.Value) error {
		for idx := 0; idx < target.Len(); idx++ {
			if err := elementUnescaper(target.Index(idx)); err != nil {
				return fmt.Errorf("element idx=%d: %w", idx, err)
			}
		}

		return nil
	}
}

func (d *Decoder) makeUnescapeMap(inConstruction typeSet, ty reflect.Type) unescaper {
	valueUnescaper := d.unescaperOf(inConstruction, ty.Elem())
	valueType := ty.Elem()

	return func(target reflect.Value) error {
		iter := target.MapRange()
		for iter.Next() {
			key := iter.Key()

			// a key that is not equal to itself (NaN) can not be written back
			if !key.Equal(key) {
				continue
			}

			// map values are not addressable, work on a copy and write it back
			value := reflect.New(valueType).Elem()
			value.Set(iter.Value())

			if err := valueUnescaper(value); err != nil {
				return fmt.Errorf("map key %q: %w", fmt.Sprint(key), err)
			}

			target.SetMapIndex(key, value)
		}

		return nil
	}
}

func (d *Decoder) makeUnescapePointer(inConstruction typeSet, ty reflect.Type) unescaper {
	pointeeUnescaper := d.unescaperOf(inConstruction, ty.Elem())

	return func(target reflect.Value) error {
		if target.IsNil() {
			return nil
		}

		return pointeeUnescaper(target.Elem())
	}
}

func unescapeString(target reflect.Value) error {
	decoded, err := Unescape(target.String())
	if err != nil {
		return err
	}

	target.SetString(decoded)
	return nil
}

func skip(reflect.Value) error {
	return nil
}
