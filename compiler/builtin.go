package compiler

// boxedPayloadOffset is the object offset of the unboxed payload word
// inside an Integer or Boolean instance (spec §6 "Object layout").
const boxedPayloadOffset = 1

// Builtins holds the built-in classes and pseudo-types that are
// synthesized programmatically and seeded into the global scope before
// parsing, per spec §3 and the design note in spec §9 ("Built-in
// classes... synthesize them programmatically in a dedicated module and
// seed the global scope before parsing"). Grounded on
// compiler/internal/symbol_table.go's initStandardLibrary(), which seeds
// that compiler's own standard library classes the same way.
type Builtins struct {
	Object  *ClassDeclaration
	Integer *ClassDeclaration
	Boolean *ClassDeclaration
	Int     *ClassDeclaration
	Bool    *ClassDeclaration
	Void    *ClassDeclaration
	Null    *ClassDeclaration
}

func builtinPos() Position { return Position{Line: 0, Column: 0} }

func boxedAttr(name string, typ *ClassDeclaration) *VarDeclaration {
	v := &VarDeclaration{
		Ident:       Identifier{Name: name, Pos: builtinPos()},
		IsAttribute: true,
		Access:      Private,
		Offset:      boxedPayloadOffset,
	}
	v.Type = &ResolvableIdentifier{Ident: Identifier{Name: typ.Name(), Pos: builtinPos()}, Declaration: typ}
	return v
}

// NewBuiltins constructs Object, Integer, Boolean, Int, Bool, Void and
// NullType, fully prepared (they need no further class-preparation pass).
func NewBuiltins() *Builtins {
	object := &ClassDeclaration{
		Ident:    Identifier{Name: "Object", Pos: builtinPos()},
		Builtin:  true,
		Prepared: true,
		Size:     1, // word 0: VMT pointer
	}

	intType := &ClassDeclaration{
		Ident:    Identifier{Name: "Int", Pos: builtinPos()},
		Builtin:  true,
		Prepared: true,
	}
	boolType := &ClassDeclaration{
		Ident:    Identifier{Name: "Bool", Pos: builtinPos()},
		Builtin:  true,
		Prepared: true,
	}
	voidType := &ClassDeclaration{
		Ident:    Identifier{Name: "Void", Pos: builtinPos()},
		Builtin:  true,
		Prepared: true,
	}
	nullType := &ClassDeclaration{
		Ident:    Identifier{Name: "NullType", Pos: builtinPos()},
		Builtin:  true,
		Prepared: true,
	}

	integer := &ClassDeclaration{
		Ident:    Identifier{Name: "Integer", Pos: builtinPos()},
		Builtin:  true,
		Prepared: true,
		Size:     object.Size + 1,
	}
	integer.BaseClass = &ResolvableIdentifier{Ident: Identifier{Name: "Object", Pos: builtinPos()}, Declaration: object}
	integer.Attrs = []*VarDeclaration{boxedAttr("value", intType)}

	boolean := &ClassDeclaration{
		Ident:    Identifier{Name: "Boolean", Pos: builtinPos()},
		Builtin:  true,
		Prepared: true,
		Size:     object.Size + 1,
	}
	boolean.BaseClass = &ResolvableIdentifier{Ident: Identifier{Name: "Object", Pos: builtinPos()}, Declaration: object}
	boolean.Attrs = []*VarDeclaration{boxedAttr("value", boolType)}

	return &Builtins{
		Object:  object,
		Integer: integer,
		Boolean: boolean,
		Int:     intType,
		Bool:    boolType,
		Void:    voidType,
		Null:    nullType,
	}
}

// All returns every built-in class/pseudo-type, in the order they should
// be seeded into the global scope.
func (b *Builtins) All() []*ClassDeclaration {
	return []*ClassDeclaration{b.Object, b.Integer, b.Boolean, b.Int, b.Bool, b.Void, b.Null}
}

// IsA implements the subtype relation of spec §4.4 step 4: every type is a
// subtype of itself; every class extends Object transitively; NullType is
// assignable to any reference type; Int/Bool are subtypes of
// Integer/Boolean in one direction only (an implicit box is still
// required — IsA only answers the type-lattice question, it does not by
// itself license skipping the box node).
func (b *Builtins) IsA(t, target *ClassDeclaration) bool {
	if t == nil || target == nil {
		return false
	}
	if t == target {
		return true
	}
	if t == b.Null {
		return target != b.Int && target != b.Bool && target != b.Void
	}
	if t == b.Int && target == b.Integer {
		return true
	}
	if t == b.Bool && target == b.Boolean {
		return true
	}
	for c := t; c != nil; c = c.baseOrNil() {
		if c == target {
			return true
		}
	}
	return false
}

func (c *ClassDeclaration) baseOrNil() *ClassDeclaration {
	if c.BaseClass == nil || c.BaseClass.Declaration == nil {
		return nil
	}
	return c.BaseClass.Declaration.(*ClassDeclaration)
}

// IsPrimitive reports whether t is one of the unboxed primitive
// pseudo-types Int/Bool, which may not be used as attribute, parameter or
// NEW target types on their own without boxing.
func (b *Builtins) IsPrimitive(t *ClassDeclaration) bool {
	return t == b.Int || t == b.Bool
}

// BoxClassFor returns the boxed wrapper class for an unboxed primitive
// type, or nil if t is not Int/Bool.
func (b *Builtins) BoxClassFor(t *ClassDeclaration) *ClassDeclaration {
	switch t {
	case b.Int:
		return b.Integer
	case b.Bool:
		return b.Boolean
	}
	return nil
}

// UnboxedTypeFor returns the unboxed primitive type carried by a boxed
// wrapper class, or nil if t is not Integer/Boolean.
func (b *Builtins) UnboxedTypeFor(t *ClassDeclaration) *ClassDeclaration {
	switch t {
	case b.Integer:
		return b.Int
	case b.Boolean:
		return b.Bool
	}
	return nil
}
