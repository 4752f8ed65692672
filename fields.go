package unescape

import (
	"reflect"
	"strings"
)

type field struct {
	Name  string
	Type  reflect.Type
	Index []int
}

// visibleFields lists the fields of the struct type ty that can be written, including
// the fields promoted from embedded structs and embedded struct pointers. Fields of an
// unexported embedded struct are promoted too, fields behind an unexported embedded
// pointer are not. A name that appears more than once is resolved the way
// encoding/json does it: the least nested field wins, ties are broken by an explicit
// name in the struct tag. Fields that still conflict are dropped.
func visibleFields(ty reflect.Type, structTag string) []field {
	type level struct {
		Type  reflect.Type
		Index []int
	}

	type candidate struct {
		Explicit bool
		Field    field
	}

	var fields []field

	// names decided on a less nested depth, including the dropped ones
	resolved := map[string]bool{}

	// struct types already walked on a less nested depth, guards recursive embedding
	visited := map[reflect.Type]bool{}

	current := []level{{Type: ty}}

	for len(current) > 0 {
		var next []level

		candidatesByName := map[string][]candidate{}

		// names in the order of their first appearance on this depth
		var names []string

		for _, item := range current {
			if visited[item.Type] {
				continue
			}

			for idx := range item.Type.NumField() {
				fi := item.Type.Field(idx)

				name, explicit := nameOf(fi, structTag)
				if name == "" {
					continue
				}

				// cap the parent index, append must not share its backing array between siblings
				index := append(item.Index[:len(item.Index):len(item.Index)], idx)

				if fi.Anonymous && !explicit {
					if embedded, ok := embeddedStruct(fi); ok {
						next = append(next, level{Type: embedded, Index: index})
						continue
					}
				}

				if !fi.IsExported() || resolved[name] {
					continue
				}

				if len(candidatesByName[name]) == 0 {
					names = append(names, name)
				}

				candidatesByName[name] = append(candidatesByName[name], candidate{
					Explicit: explicit,
					Field:    field{Name: name, Type: fi.Type, Index: index},
				})
			}
		}

		for _, item := range current {
			visited[item.Type] = true
		}

		for _, name := range names {
			resolved[name] = true

			candidates := candidatesByName[name]
			if len(candidates) == 1 {
				fields = append(fields, candidates[0].Field)
				continue
			}

			var explicit []field
			for _, c := range candidates {
				if c.Explicit {
					explicit = append(explicit, c.Field)
				}
			}

			if len(explicit) == 1 {
				fields = append(fields, explicit[0])
			}

			// otherwise the name is ambiguous and the field is skipped
		}

		current = next
	}

	return fields
}

// embeddedStruct returns the struct type whose fields are promoted by the embedded field fi.
func embeddedStruct(fi reflect.StructField) (reflect.Type, bool) {
	ty := fi.Type

	if ty.Kind() == reflect.Pointer {
		// the pointee of an unexported pointer can not be written
		if !fi.IsExported() {
			return nil, false
		}

		ty = ty.Elem()
	}

	return ty, ty.Kind() == reflect.Struct
}

// nameOf returns the name of the field as given by the struct tag. An empty name
// means the field is skipped.
func nameOf(fi reflect.StructField, structTag string) (name string, explicit bool) {
	tag := fi.Tag.Get(structTag)

	switch {
	case tag == "":
		return fi.Name, false

	case tag == "-":
		return "", true
	}

	name, _, _ = strings.Cut(tag, ",")
	if name == "" {
		// options only, keep the field name
		return fi.Name, false
	}

	return name, true
}
