package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/macrostub/internal/macro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
functions:
  strtoupper:
    params:
      - name: string

classes:
  Illuminate\Support\Str:
    traits: [Illuminate\Support\Traits\Macroable]
    macros:
      - name: foo
        doc: "/** Pads a value. */"
        params:
          - name: a
          - name: b
            default: 5
      - name: bar
      - name: money
        method: App\Mixins\StrMixin::money
      - name: upper
        function: strtoupper

  Illuminate\Support\Traits\Macroable:
    macros: []

  App\Mixins\StrMixin:
    methods:
      money:
        doc: |
          /**
           * @instantiated
           */
        params:
          - name: amount
          - name: currency
            default: EUR
          - name: eol
            default: !expr PHP_EOL
          - name: options
            default: {precision: 2, "0": zero}
          - name: rest
            variadic: true

  Illuminate\Database\Eloquent\Builder:
    globalMacros:

  App\Empty:
    extends: Illuminate\Support\Str
`

func loadSample(t *testing.T) *Registry {
	t.Helper()
	r := New()
	require.NoError(t, r.ParseManifest("macros.yaml", []byte(sampleManifest)))
	return r
}

func TestParseManifest_Storage(t *testing.T) {
	r := loadSample(t)

	s, ok := r.Storage(`Illuminate\Support\Str`, macro.FieldMacros)
	require.True(t, ok)

	var names []string
	for _, m := range s.Macros() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"foo", "bar", "money", "upper"}, names)

	inherited, ok := r.Storage(`App\Empty`, macro.FieldMacros)
	require.True(t, ok, "subclass sees the parent's storage")
	assert.Same(t, s, inherited)

	global, ok := r.Storage(`Illuminate\Database\Eloquent\Builder`, macro.FieldGlobalMacros)
	require.True(t, ok, "an empty globalMacros key still declares the property")
	assert.Equal(t, 0, global.Len())
}

func TestParseManifest_Signatures(t *testing.T) {
	r := loadSample(t)
	s, _ := r.Storage(`Illuminate\Support\Str`, macro.FieldMacros)

	foo, _ := s.Get("foo")
	sig, ok := r.Resolve(foo.Callable)
	require.True(t, ok)
	assert.Equal(t, "/** Pads a value. */", sig.Doc)
	require.Len(t, sig.Params, 2)
	assert.False(t, sig.Params[0].Optional)
	assert.True(t, sig.Params[1].HasDefault())
	assert.Equal(t, "5", sig.Params[1].Default.Export())

	money, _ := s.Get("money")
	assert.Equal(t, macro.BoundMethod{Owner: `App\Mixins\StrMixin`, Method: "money"}, money.Callable)
	sig, ok = r.Resolve(money.Callable)
	require.True(t, ok)
	assert.True(t, sig.Instantiated())
	require.Len(t, sig.Params, 5)
	assert.Equal(t, "'EUR'", sig.Params[1].Default.Export())
	assert.True(t, sig.Params[2].Optional)
	assert.False(t, sig.Params[2].HasDefault(), "!expr defaults are unresolved")
	assert.Equal(t, "array (\n  'precision' => 2,\n  0 => 'zero',\n)", sig.Params[3].Default.Export())
	assert.True(t, sig.Params[4].Variadic)
	assert.True(t, sig.Params[4].Optional)

	upper, _ := s.Get("upper")
	sig, ok = r.Resolve(upper.Callable)
	require.True(t, ok)
	assert.Equal(t, "string", sig.Params[0].Name)
}

func TestParseManifest_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "classes: [unterminated"},
		{name: "macro without name", content: "classes:\n  A:\n    macros:\n      - doc: x\n"},
		{name: "bad method reference", content: "classes:\n  A:\n    macros:\n      - name: x\n        method: Foo\n"},
		{name: "param without name", content: "classes:\n  A:\n    macros:\n      - name: x\n        params: [{default: 1}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().ParseManifest("bad.yaml", []byte(tt.content))
			require.Error(t, err)
			var me *ManifestError
			assert.ErrorAs(t, err, &me)
			assert.Contains(t, err.Error(), "bad.yaml")
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "macros.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	r := New()
	require.NoError(t, r.LoadManifest(path))
	c, ok := r.Lookup(`Illuminate\Support\Str`)
	require.True(t, ok)
	assert.Equal(t, path, c.Origin)

	err := New().LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
