package instructions_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/osgikit/bndbuild/internal/instructions"
)

func TestSetAccumulation(t *testing.T) {
	cases := []struct {
		note string
		puts [][]string // first element key, rest fragments
		exp  map[string]string
	}{
		{
			note: "single put",
			puts: [][]string{{"Export-Package", "org.example.api"}},
			exp:  map[string]string{"Export-Package": "org.example.api"},
		},
		{
			note: "repeated puts append in call order",
			puts: [][]string{{"X", "a"}, {"X", "b"}},
			exp:  map[string]string{"X": "a,b"},
		},
		{
			note: "legacy variadic form joins all fragments",
			puts: [][]string{{"Built-By", "ab", "c"}, {"Built-By", "x", "y", "z"}},
			exp:  map[string]string{"Built-By": "ab,c,x,y,z"},
		},
		{
			note: "empty value is a legal directive payload",
			puts: [][]string{{"-sources", "true"}, {"-noee"}},
			exp:  map[string]string{"-sources": "true", "-noee": ""},
		},
		{
			note: "unknown keys are preserved verbatim",
			puts: [][]string{{"X-Custom-Header", "v"}},
			exp:  map[string]string{"X-Custom-Header": "v"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			s := instructions.NewSet()
			for _, p := range tc.puts {
				s.Put(p[0], p[1:]...)
			}
			if diff := cmp.Diff(tc.exp, s.Flatten()); diff != "" {
				t.Errorf("flatten: (-want,+got)\n%s", diff)
			}
		})
	}
}

func TestSetAdd(t *testing.T) {
	s := instructions.NewSet()
	s.Add(map[string]string{
		"Export-Package": "org.example.api",
		"Bundle-Vendor":  "Example Corp",
	})
	s.Add(map[string]string{"Export-Package": "org.example.impl"})

	exp := map[string]string{
		"Export-Package": "org.example.api,org.example.impl",
		"Bundle-Vendor":  "Example Corp",
	}
	if diff := cmp.Diff(exp, s.Flatten()); diff != "" {
		t.Errorf("flatten: (-want,+got)\n%s", diff)
	}
}

func TestSetKeysInsertionOrder(t *testing.T) {
	s := instructions.NewSet()
	s.Put("B", "1")
	s.Put("A", "2")
	s.Put("B", "3")

	if diff := cmp.Diff([]string{"B", "A"}, s.Keys()); diff != "" {
		t.Errorf("keys: (-want,+got)\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1", "3"}, s.Fragments("B")); diff != "" {
		t.Errorf("fragments: (-want,+got)\n%s", diff)
	}
}

func TestAttributesFirstWriteWins(t *testing.T) {
	a := instructions.NewAttributes()
	a.Set("Built-By", "abc")
	a.Set("Built-By", "xyz")

	v, ok := a.Get("Built-By")
	if !ok || v != "abc" {
		t.Fatalf("expected first write to win, got %q (ok=%v)", v, ok)
	}
}

func TestMerge(t *testing.T) {
	cases := []struct {
		note  string
		attrs map[string]string
		instr map[string][]string
		exp   map[string]string
	}{
		{
			note:  "instruction layer wins per key",
			attrs: map[string]string{"Built-By": "abc"},
			instr: map[string][]string{"Built-By": {"xyz"}},
			exp:   map[string]string{"Built-By": "xyz"},
		},
		{
			note:  "attribute passes through when key absent from instructions",
			attrs: map[string]string{"Built-By": "abc", "Specification-Title": "demo"},
			instr: map[string][]string{"Bundle-Vendor": {"Example Corp"}},
			exp: map[string]string{
				"Built-By":            "abc",
				"Specification-Title": "demo",
				"Bundle-Vendor":       "Example Corp",
			},
		},
		{
			note:  "no cross-layer accumulation",
			attrs: map[string]string{"Export-Package": "org.attr"},
			instr: map[string][]string{"Export-Package": {"org.a", "org.b"}},
			exp:   map[string]string{"Export-Package": "org.a,org.b"},
		},
		{
			note:  "empty attribute map degenerates to pure instructions",
			instr: map[string][]string{"Bundle-Name": {"demo"}},
			exp:   map[string]string{"Bundle-Name": "demo"},
		},
		{
			note:  "empty instruction set degenerates to attribute passthrough",
			attrs: map[string]string{"Built-By": "abc"},
			exp:   map[string]string{"Built-By": "abc"},
		},
		{
			note: "both layers empty",
			exp:  map[string]string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			attrs := instructions.AttributesFromMap(tc.attrs)
			instr := instructions.NewSet()
			for key, frags := range tc.instr {
				instr.Put(key, frags...)
			}

			got := instructions.Merge(attrs, instr)
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("merge: (-want,+got)\n%s", diff)
			}

			// Re-resolving with identical inputs yields an identical result.
			again := instructions.Merge(attrs, instr)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("merge is not deterministic: (-first,+second)\n%s", diff)
			}
		})
	}
}

func TestMergeNilLayers(t *testing.T) {
	if got := instructions.Merge(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}

	s := instructions.NewSet()
	s.Put("K", "v")
	if diff := cmp.Diff(map[string]string{"K": "v"}, instructions.Merge(nil, s)); diff != "" {
		t.Errorf("(-want,+got)\n%s", diff)
	}
}
