package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuiltins_IsA(t *testing.T) {
	b := NewBuiltins()
	custom := &ClassDeclaration{Ident: Identifier{Name: "Widget"}}
	custom.BaseClass = &ResolvableIdentifier{Declaration: b.Object}

	testData := []struct {
		name     string
		t, want  *ClassDeclaration
		expected bool
	}{
		{"reflexive", b.Object, b.Object, true},
		{"custom extends object", custom, b.Object, true},
		{"object not custom", b.Object, custom, false},
		{"null to reference type", b.Null, custom, true},
		{"null not to int", b.Null, b.Int, false},
		{"int to integer one way", b.Int, b.Integer, true},
		{"integer not to int", b.Integer, b.Int, false},
		{"bool to boolean one way", b.Bool, b.Boolean, true},
	}
	for _, d := range testData {
		assert.Equal(t, d.expected, b.IsA(d.t, d.want), d.name)
	}
}

func TestBuiltins_BoxUnbox(t *testing.T) {
	b := NewBuiltins()
	assert.Equal(t, b.Integer, b.BoxClassFor(b.Int))
	assert.Equal(t, b.Boolean, b.BoxClassFor(b.Bool))
	assert.Nil(t, b.BoxClassFor(b.Object))
	assert.Equal(t, b.Int, b.UnboxedTypeFor(b.Integer))
	assert.Equal(t, b.Bool, b.UnboxedTypeFor(b.Boolean))
	assert.Nil(t, b.UnboxedTypeFor(b.Object))
}

func TestBuiltins_IsPrimitive(t *testing.T) {
	b := NewBuiltins()
	assert.True(t, b.IsPrimitive(b.Int))
	assert.True(t, b.IsPrimitive(b.Bool))
	assert.False(t, b.IsPrimitive(b.Integer))
	assert.False(t, b.IsPrimitive(b.Object))
}

func TestBuiltins_ObjectLayout(t *testing.T) {
	b := NewBuiltins()
	assert.Equal(t, 1, b.Object.Size)
	assert.Equal(t, 2, b.Integer.Size)
	assert.Equal(t, 2, b.Boolean.Size)
	assert.Equal(t, boxedPayloadOffset, b.Integer.Attrs[0].Offset)
}
