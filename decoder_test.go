package unescape

import (
	"github.com/stretchr/testify/require"
	"math"
	"sync"
	"testing"
)

func TestUnescapeInto_Struct(t *testing.T) {
	type Address struct {
		City   string
		Street *string
	}

	//goland:noinspection ALL
	type Config struct {
		Greeting  string
		Separator string `unescape:"sep"`
		Verbatim  string `unescape:"-"`
		Lines     []string
		Headers   map[string]string
		Address   *Address
		Pair      [2]string
		Count     int
		Any       any

		// not exported, must not be touched
		note string
	}

	street := `Bahnhofstrasse\t1`

	config := Config{
		Greeting:  `Hello\nWorld`,
		Separator: `\t`,
		Verbatim:  `keep\nme`,
		Lines:     []string{`a\"b`, `c\\d`},
		Headers:   map[string]string{`X\nKey`: `v\r\n`},
		Address:   &Address{City: `Z\u00fcrich`, Street: &street},
		Pair:      [2]string{`\n`, `\t`},
		Count:     12,
		Any:       `not\nvisited`,
		note:      `private\n`,
	}

	err := UnescapeInto(&config)
	require.NoError(t, err)
	require.Equal(t, Config{
		Greeting:  "Hello\nWorld",
		Separator: "\t",
		Verbatim:  `keep\nme`,
		Lines:     []string{`a"b`, `c\d`},
		Headers:   map[string]string{`X\nKey`: "v\r\n"},
		Address:   &Address{City: "Zürich", Street: &street},
		Pair:      [2]string{"\n", "\t"},
		Count:     12,
		Any:       `not\nvisited`,
		note:      `private\n`,
	}, config)

	require.Equal(t, "Bahnhofstrasse\t1", street)
}

func TestUnescapeInto_String(t *testing.T) {
	value := `one\ntwo`
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, "one\ntwo", value)
}

func TestUnescapeInto_NamedStringType(t *testing.T) {
	type Template string

	value := []Template{`\"x\"`}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, []Template{`"x"`}, value)
}

func TestUnescapeInto_NilValues(t *testing.T) {
	type Struct struct {
		Pointer *string
		Slice   []string
		Map     map[string]string
	}

	var value Struct
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, Struct{}, value)
}

func TestUnescapeInto_RecursiveType(t *testing.T) {
	type Node struct {
		Name     string
		Children []*Node
		Next     *Node
	}

	tree := Node{
		Name: `root\n`,
		Children: []*Node{
			{Name: `left\t`},
			{Name: `right\"`, Next: &Node{Name: `next\\`}},
		},
	}

	require.NoError(t, UnescapeInto(&tree))
	require.Equal(t, "root\n", tree.Name)
	require.Equal(t, "left\t", tree.Children[0].Name)
	require.Equal(t, `right"`, tree.Children[1].Name)
	require.Equal(t, `next\`, tree.Children[1].Next.Name)
}

func TestUnescapeInto_Malformed(t *testing.T) {
	type Inner struct {
		Values []string
	}

	type Outer struct {
		Inner Inner `unescape:"inner"`
	}

	value := Outer{Inner: Inner{Values: []string{`ok`, `bad\x`}}}

	err := UnescapeInto(&value)
	require.ErrorIs(t, err, ErrMalformedEscape)
	require.ErrorContains(t, err, `field "inner": field "Values": element idx=1:`)

	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.Equal(t, 3, syntaxErr.Offset)
}

func TestUnescapeInto_MalformedMapValue(t *testing.T) {
	value := map[string]string{"key": `\`}

	err := UnescapeInto(&value)
	require.ErrorIs(t, err, ErrMalformedEscape)
	require.ErrorContains(t, err, `map key "key":`)

	// the failing value is not rewritten
	require.Equal(t, `\`, value["key"])
}

func TestUnescapeInto_InvalidTarget(t *testing.T) {
	var invalidTarget InvalidTargetError

	err := UnescapeInto("not a pointer")
	require.ErrorAs(t, err, &invalidTarget)
	require.EqualError(t, err, `target of type "string" is not a pointer`)

	err = UnescapeInto(nil)
	require.EqualError(t, err, "target is nil")

	var nilPointer *string
	err = UnescapeInto(nilPointer)
	require.EqualError(t, err, `target of type "*string" is a nil pointer`)
}

func TestDecoder_WithTag(t *testing.T) {
	type Struct struct {
		A string `yaml:"-"`
		B string `unescape:"-"`
	}

	value := Struct{A: `a\n`, B: `b\n`}

	dec := NewDecoder().WithTag("yaml")
	require.NoError(t, dec.UnescapeInto(&value))
	require.Equal(t, Struct{A: `a\n`, B: "b\n"}, value)

	require.Same(t, dec, dec.WithTag("yaml"))
}

func TestNaming_TagNoName(t *testing.T) {
	type Struct struct {
		A string `unescape:",omitempty"` // same as no tag
	}

	value := Struct{A: `\t`}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, Struct{A: "\t"}, value)
}

func TestNaming_EmbeddedStruct(t *testing.T) {
	type Base struct{ A string }

	type Struct struct {
		Base
		B string
	}

	value := Struct{Base: Base{A: `\n`}, B: `\t`}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, Struct{Base: Base{A: "\n"}, B: "\t"}, value)
}

func TestNaming_EmbeddedNamingConflict(t *testing.T) {
	type First struct{ A string }
	type Second struct{ A string }

	type Struct struct {
		First
		Second
	}

	value := Struct{First{`\n`}, Second{`\n`}}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, Struct{
		// naming conflict, nothing is decoded
		First{`\n`}, Second{`\n`},
	}, value)
}

func TestNaming_EmbeddedNamingExplicitWinsOnSameNesting(t *testing.T) {
	type First struct {
		A string
	}
	type Second struct {
		A string `unescape:"A"` // this one wins
	}

	type Struct struct {
		First
		Second
	}

	value := Struct{First{`\n`}, Second{`\n`}}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, Struct{First{`\n`}, Second{"\n"}}, value)
}

func TestNaming_EmbeddedLowerNestingWins(t *testing.T) {
	type First struct{ A string }

	type Struct struct {
		First
		A string // this one wins
	}

	value := Struct{First: First{A: `\n`}, A: `\n`}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, Struct{First: First{A: `\n`}, A: "\n"}, value)
}

func TestUnescapeInto_MapWithNaNKey(t *testing.T) {
	value := map[float64]string{
		math.NaN(): `nan\n`,
		1:          `one\n`,
	}

	require.NoError(t, UnescapeInto(&value))
	require.Len(t, value, 2)
	require.Equal(t, "one\n", value[1])

	for key, entry := range value {
		if math.IsNaN(key) {
			// can not be written back, kept as is
			require.Equal(t, `nan\n`, entry)
		}
	}
}

func TestUnescapeInto_ConcurrentRecursiveType(t *testing.T) {
	type Node struct {
		Name     string
		Children []*Node
		Next     *Node
	}

	dec := NewDecoder()

	const workers = 16

	var wg sync.WaitGroup
	trees := make([]Node, workers)
	errs := make([]error, workers)

	for idx := range workers {
		trees[idx] = Node{
			Name:     `root\n`,
			Children: []*Node{{Name: `child\t`, Next: &Node{Name: `next\"`}}},
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[idx] = dec.UnescapeInto(&trees[idx])
		}()
	}

	wg.Wait()

	for idx := range workers {
		require.NoError(t, errs[idx])
		require.Equal(t, "root\n", trees[idx].Name)
		require.Equal(t, "child\t", trees[idx].Children[0].Name)
		require.Equal(t, `next"`, trees[idx].Children[0].Next.Name)
	}
}

type base struct {
	A string
}

type Extra struct {
	B string
}

func TestNaming_EmbeddedUnexportedStruct(t *testing.T) {
	type Struct struct {
		base
		C string
	}

	value := Struct{base: base{A: `\n`}, C: `\t`}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, Struct{base: base{A: "\n"}, C: "\t"}, value)
}

func TestNaming_EmbeddedPointer(t *testing.T) {
	type Struct struct {
		*Extra
		C string
	}

	value := Struct{Extra: &Extra{B: `\n`}, C: `\t`}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, "\n", value.B)
	require.Equal(t, "\t", value.C)

	// nil embedded pointer is skipped
	value = Struct{C: `\r`}
	require.NoError(t, UnescapeInto(&value))
	require.Nil(t, value.Extra)
	require.Equal(t, "\r", value.C)
}

func TestNaming_EmbeddedUnexportedPointer(t *testing.T) {
	type Struct struct {
		*base
		C string
	}

	value := Struct{base: &base{A: `\n`}, C: `\t`}
	require.NoError(t, UnescapeInto(&value))
	require.Equal(t, `\n`, value.A)
	require.Equal(t, "\t", value.C)
}

func TestNaming_RecursiveEmbedding(t *testing.T) {
	type Chain struct {
		*Chain
		Name string
	}

	value := Chain{Name: `outer\n`, Chain: &Chain{Name: `inner\n`}}
	require.NoError(t, UnescapeInto(&value))

	// the inner Name is shadowed by the outer one
	require.Equal(t, "outer\n", value.Name)
	require.Equal(t, `inner\n`, value.Chain.Name)
}
