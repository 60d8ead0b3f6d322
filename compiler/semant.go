package compiler

// Analyze runs the semantic analysis pass of spec §4.4: class preparation
// (base-first, with method-signature resolution and VMT construction
// folded in, since VMT slot matching needs resolved signatures), then a
// second pass over every method body that types expressions, inserts
// box/unbox/dereference nodes, enforces access rights, and checks
// return-coverage. Grounded on compiler/type_checker.go's
// typeCheckMethod/typeCheckStatements shape and
// compiler/internal/symbol_table.go's buildClassMethods/buildMethod0
// offset assignment, reimplemented rather than copied (that package's
// checkMatch0 has an inverted boolean condition and
// buildFuncLocalVariableDesc discards its accumulated result — see
// DESIGN.md).
func Analyze(prog *Program, decls *Declarations) error {
	for _, c := range prog.Classes {
		if err := decls.AddClass(c); err != nil {
			return err
		}
	}
	for _, c := range decls.Classes() {
		if err := prepareClass(c, decls); err != nil {
			return err
		}
	}
	if err := checkMainMethod(decls); err != nil {
		return err
	}
	for _, c := range decls.Classes() {
		for _, m := range c.Methods {
			if err := analyzeMethodBody(c, m, decls); err != nil {
				return err
			}
		}
	}
	return nil
}

// prepareClass resolves c's base class (detecting inheritance cycles via
// the "being prepared" marker), resolves attribute and method-signature
// types, computes attribute offsets, and builds the VMT by copying the
// base VMT and then overriding-or-appending each of c's own methods
// (spec §4.4 step 1, with step 2 folded in — see the file doc comment).
func prepareClass(c *ClassDeclaration, decls *Declarations) error {
	if c.Prepared {
		return nil
	}
	if c.preparing {
		return contextError(c.Pos(), "class %q participates in a cyclic inheritance chain", c.Name())
	}
	c.preparing = true
	defer func() { c.preparing = false }()

	base := decls.Builtins().Object
	if c.BaseClass != nil {
		b, err := decls.ResolveType(c.BaseClass)
		if err != nil {
			return err
		}
		if err := prepareClass(b, decls); err != nil {
			return err
		}
		base = b
	} else {
		c.BaseClass = declaredType(base)
	}

	offset := base.Size
	for _, a := range c.Attrs {
		a.Owner = c
		if _, err := decls.ResolveType(a.Type); err != nil {
			return err
		}
		if decls.Builtins().IsPrimitive(a.ResolvedType()) {
			return contextError(a.Pos(), "attribute %q cannot have the unboxed type %s", a.Name(), a.ResolvedType().Name())
		}
		a.Offset = offset
		offset++
	}
	c.Size = offset

	for _, m := range c.Methods {
		m.Owner = c
		if err := resolveMethodSignature(m, decls); err != nil {
			return err
		}
	}

	vmt := append([]*MethodDeclaration{}, base.VMT...)
	for _, m := range c.Methods {
		matched := false
		for i, baseMethod := range vmt {
			if baseMethod.Name() != m.Name() {
				continue
			}
			if !m.SignatureMatches(baseMethod) {
				return contextError(m.Pos(), "illegal overload of method %q", m.Name())
			}
			if err := checkAccessNarrowing(baseMethod, m); err != nil {
				return err
			}
			vmt[i] = m
			m.VMTIndex = i
			matched = true
			break
		}
		if !matched {
			m.VMTIndex = len(vmt)
			vmt = append(vmt, m)
		}
	}
	c.VMT = vmt
	c.Prepared = true
	return nil
}

func resolveMethodSignature(m *MethodDeclaration, decls *Declarations) error {
	for _, p := range m.Params {
		if _, err := decls.ResolveType(p.Type); err != nil {
			return err
		}
		if decls.Builtins().IsPrimitive(p.ResolvedType()) {
			return contextError(p.Pos(), "parameter %q cannot have the unboxed type %s", p.Name(), p.ResolvedType().Name())
		}
	}
	if m.ReturnType != nil {
		if _, err := decls.ResolveType(m.ReturnType); err != nil {
			return err
		}
	}
	return nil
}

// checkAccessNarrowing enforces spec §3's override rule: PUBLIC cannot be
// overridden by PROTECTED/PRIVATE; PROTECTED cannot be overridden by
// PRIVATE.
func checkAccessNarrowing(base, override *MethodDeclaration) error {
	rank := func(a AccessRight) int {
		switch a {
		case Public:
			return 0
		case Protected:
			return 1
		default:
			return 2
		}
	}
	if rank(override.AccessRight()) > rank(base.AccessRight()) {
		return contextError(override.Pos(), "method %q narrows the access right of the method it overrides", override.Name())
	}
	return nil
}

// checkMainMethod implements the supplemented feature recorded in
// SPEC_FULL.md: the program must declare a class Main with a method main,
// and that method must not declare a return type.
func checkMainMethod(decls *Declarations) error {
	decl, ok := decls.Resolve("Main")
	if !ok {
		return contextError(Position{}, "program does not declare a class named Main")
	}
	main, ok := decl.(*ClassDeclaration)
	if !ok {
		return contextError(Position{}, "Main is not a class")
	}
	m := main.FindMethod("main")
	if m == nil {
		return contextError(main.Pos(), "class Main does not declare a method named main")
	}
	if m.ReturnType != nil {
		return contextError(m.Pos(), "method Main.main must not return a value")
	}
	return nil
}

// analyzeMethodBody opens the method's scope, installs the synthetic
// locals _self/_base/_result at the offsets spec §3/§4.4 prescribe,
// assigns parameter and local offsets, type-checks every statement, and
// checks return-coverage (spec §4.4 steps 3 and 8). Offset arithmetic
// mirrors original_source/oopsc/declarations/MethodDeclaration.java's
// contextAnalysis exactly.
func analyzeMethodBody(owner *ClassDeclaration, m *MethodDeclaration, decls *Declarations) error {
	decls.SetCurrentClass(owner)
	decls.SetCurrentMethod(m)
	decls.Enter()
	defer decls.Leave()

	offset := -(len(m.Params) + 2)

	m.SelfVar = &VarDeclaration{Ident: Identifier{Name: "_self", Pos: m.Pos()}, Offset: offset}
	m.SelfVar.Type = declaredType(owner)
	if err := decls.Add(m.SelfVar); err != nil {
		return err
	}

	m.ResultVar = &VarDeclaration{Ident: Identifier{Name: "_result", Pos: m.Pos()}, Offset: offset}
	m.ResultVar.Type = declaredType(methodReturnClass(m, decls))
	if err := decls.Add(m.ResultVar); err != nil {
		return err
	}

	if baseClass := owner.baseOrNil(); baseClass != nil {
		m.BaseVar = &VarDeclaration{Ident: Identifier{Name: "_base", Pos: m.Pos()}, Offset: offset}
		m.BaseVar.Type = declaredType(baseClass)
		if err := decls.Add(m.BaseVar); err != nil {
			return err
		}
	}

	for _, p := range m.Params {
		offset++
		p.Offset = offset
		if err := decls.Add(p); err != nil {
			return err
		}
	}

	localOffset := 1
	for _, v := range m.Locals {
		v.Offset = localOffset
		localOffset++
		if err := decls.Add(v); err != nil {
			return err
		}
		if _, err := decls.ResolveType(v.Type); err != nil {
			return err
		}
		if decls.Builtins().IsPrimitive(v.ResolvedType()) {
			return contextError(v.Pos(), "local variable %q cannot have the unboxed type %s", v.Name(), v.ResolvedType().Name())
		}
	}

	for i, s := range m.Statements {
		analyzed, err := analyzeStatement(s, decls)
		if err != nil {
			return err
		}
		m.Statements[i] = analyzed
	}

	if m.ReturnType != nil && !blockCovers(m.Statements) {
		return contextError(m.Pos(), "not every execution path of method %q returns a value", m.Name())
	}
	return nil
}

func declaredType(c *ClassDeclaration) *ResolvableIdentifier {
	return &ResolvableIdentifier{Ident: Identifier{Name: c.Name()}, Declaration: c}
}

func methodReturnClass(m *MethodDeclaration, decls *Declarations) *ClassDeclaration {
	if m.ReturnType == nil {
		return decls.Builtins().Void
	}
	return m.ReturnType.Declaration.(*ClassDeclaration)
}

func typeName(c *ClassDeclaration) string {
	if c == nil {
		return "<unresolved>"
	}
	return c.Name()
}

// --- Statements -----------------------------------------------------

func analyzeStatement(s Statement, decls *Declarations) (Statement, error) {
	switch st := s.(type) {
	case *AssignStatement:
		target, err := analyzeExpr(st.Target, decls)
		if err != nil {
			return nil, err
		}
		if !target.IsLValue() {
			return nil, contextError(st.Pos(), "left side of assignment is not a variable")
		}
		st.Target = target
		value, err := analyzeExpr(st.Value, decls)
		if err != nil {
			return nil, err
		}
		coerced, err := coerceAssignable(value, target.Type(), decls)
		if err != nil {
			return nil, err
		}
		st.Value = coerced
		return st, nil
	case *CallStatement:
		call, err := analyzeExpr(st.Call, decls)
		if err != nil {
			return nil, err
		}
		if !isCallExpr(call) {
			return nil, contextError(st.Pos(), "expression statement must be a method call")
		}
		st.Call = call
		return st, nil
	case *ReadStatement:
		target, err := analyzeExpr(st.Target, decls)
		if err != nil {
			return nil, err
		}
		if !target.IsLValue() {
			return nil, contextError(st.Pos(), "READ target is not a variable")
		}
		st.Target = target
		return st, nil
	case *WriteStatement:
		val, err := analyzeExpr(st.Value, decls)
		if err != nil {
			return nil, err
		}
		val, err = requireUnboxed(val, decls, decls.Builtins().Int)
		if err != nil {
			return nil, err
		}
		st.Value = val
		return st, nil
	case *IfStatement:
		cond, err := analyzeCondition(st.Cond, decls)
		if err != nil {
			return nil, err
		}
		st.Cond = cond
		if err := analyzeBlock(st.Then, decls); err != nil {
			return nil, err
		}
		if err := analyzeBlock(st.Else, decls); err != nil {
			return nil, err
		}
		return st, nil
	case *WhileStatement:
		cond, err := analyzeCondition(st.Cond, decls)
		if err != nil {
			return nil, err
		}
		st.Cond = cond
		if err := analyzeBlock(st.Body, decls); err != nil {
			return nil, err
		}
		return st, nil
	case *ReturnStatement:
		m := decls.CurrentMethod()
		if st.Value == nil {
			if m.ReturnType != nil {
				return nil, contextError(st.Pos(), "method %q expects a return value", m.Name())
			}
			return st, nil
		}
		if m.ReturnType == nil {
			return nil, contextError(st.Pos(), "method %q must not return a value", m.Name())
		}
		val, err := analyzeExpr(st.Value, decls)
		if err != nil {
			return nil, err
		}
		coerced, err := coerceAssignable(val, methodReturnClass(m, decls), decls)
		if err != nil {
			return nil, err
		}
		st.Value = coerced
		return st, nil
	default:
		return nil, internalError(s.Pos(), "unexpected statement node %T", s)
	}
}

func analyzeBlock(stmts []Statement, decls *Declarations) error {
	for i, s := range stmts {
		analyzed, err := analyzeStatement(s, decls)
		if err != nil {
			return err
		}
		stmts[i] = analyzed
	}
	return nil
}

func analyzeCondition(e Expression, decls *Declarations) (Expression, error) {
	analyzed, err := analyzeExpr(e, decls)
	if err != nil {
		return nil, err
	}
	return requireUnboxed(analyzed, decls, decls.Builtins().Bool)
}

// --- Expressions -----------------------------------------------------

func analyzeExpr(e Expression, decls *Declarations) (Expression, error) {
	switch ex := e.(type) {
	case *LiteralExpr:
		switch ex.Kind {
		case IntegerLiteral:
			ex.SetType(decls.Builtins().Int)
		case BooleanLiteral:
			ex.SetType(decls.Builtins().Bool)
		case NullLiteral:
			ex.SetType(decls.Builtins().Null)
		}
		return ex, nil
	case *VarOrCall:
		return analyzeVarOrCall(ex, decls, true)
	case *AccessExpr:
		return analyzeAccessExpr(ex, decls)
	case *NewExpr:
		return analyzeNewExpr(ex, decls)
	case *UnaryExpr:
		return analyzeUnaryExpr(ex, decls)
	case *BinaryExpr:
		return analyzeBinaryExpr(ex, decls)
	default:
		return nil, internalError(e.Pos(), "unexpected expression node %T", e)
	}
}

// analyzeVarOrCall is grounded directly on
// original_source/oopsc/expressions/VarOrCall.java's two-argument
// contextAnalysis: when addSelf is true and the name denotes an attribute
// or method, an access through SELF is spliced into the tree; it is never
// spliced in for the right side of an explicit access expression, because
// analyzeAccessExpr resolves that side with its own member lookup
// (lookupMember) and never passes it to analyzeVarOrCall.
func analyzeVarOrCall(ex *VarOrCall, decls *Declarations, addSelf bool) (Expression, error) {
	if err := decls.ResolveVarOrMethod(ex.Ident); err != nil {
		return nil, err
	}
	decl := ex.Ident.Declaration
	if addSelf {
		if _, isMethod := decl.(*MethodDeclaration); isMethod {
			return wrapWithSelf(ex, decls)
		}
		if v, isVar := decl.(*VarDeclaration); isVar && v.IsAttribute {
			return wrapWithSelf(ex, decls)
		}
	}
	switch d := decl.(type) {
	case *VarDeclaration:
		ex.SetType(d.ResolvedType())
	case *MethodDeclaration:
		if err := analyzeCallArgs(ex, d, decls); err != nil {
			return nil, err
		}
		ex.SetType(methodReturnClass(d, decls))
	}
	return ex, nil
}

func wrapWithSelf(ex *VarOrCall, decls *Declarations) (Expression, error) {
	pos := ex.Pos()
	selfRef := &VarOrCall{exprBase: exprBase{position: pos}, Ident: NewResolvableIdentifier("_self", pos)}
	access := &AccessExpr{exprBase: exprBase{position: pos}, Left: selfRef, Right: ex}
	return analyzeAccessExpr(access, decls)
}

// analyzeAccessExpr resolves the right-hand name against the left-hand
// side's (dereferenced) class, not against the lexical scope, enforcing
// access rights relative to the *enclosing method's* class throughout
// (spec §4.4 step 6).
func analyzeAccessExpr(ex *AccessExpr, decls *Declarations) (Expression, error) {
	left, err := analyzeExpr(ex.Left, decls)
	if err != nil {
		return nil, err
	}
	left, err = dereference(left, decls)
	if err != nil {
		return nil, err
	}
	ex.Left = left

	receiverClass := left.Type()
	if receiverClass == nil {
		return nil, contextError(ex.Right.Pos(), "cannot access %q: receiver has no type", ex.Right.Ident.Name())
	}
	decl, ok := lookupMember(receiverClass, ex.Right.Ident.Name())
	if !ok {
		return nil, contextError(ex.Right.Pos(), "%q is undeclared in class %s", ex.Right.Ident.Name(), receiverClass.Name())
	}
	if err := decls.checkAccess(decl); err != nil {
		return nil, err
	}
	ex.Right.Ident.Declaration = decl

	switch d := decl.(type) {
	case *VarDeclaration:
		ex.Right.SetType(d.ResolvedType())
	case *MethodDeclaration:
		if err := analyzeCallArgs(ex.Right, d, decls); err != nil {
			return nil, err
		}
		ex.Right.SetType(methodReturnClass(d, decls))
	}
	ex.SetType(ex.Right.Type())
	return ex, nil
}

func lookupMember(c *ClassDeclaration, name string) (Declaration, bool) {
	for cur := c; cur != nil; cur = cur.baseOrNil() {
		if a := cur.FindAttr(name); a != nil {
			return a, true
		}
		if m := cur.FindMethod(name); m != nil {
			return m, true
		}
	}
	return nil, false
}

func analyzeNewExpr(ex *NewExpr, decls *Declarations) (Expression, error) {
	cls, err := decls.ResolveType(ex.TypeName)
	if err != nil {
		return nil, err
	}
	if decls.Builtins().IsPrimitive(cls) {
		return nil, contextError(ex.Pos(), "cannot instantiate the unboxed type %s", cls.Name())
	}
	ex.SetType(cls)
	return ex, nil
}

func analyzeUnaryExpr(ex *UnaryExpr, decls *Declarations) (Expression, error) {
	operand, err := analyzeExpr(ex.Operand, decls)
	if err != nil {
		return nil, err
	}
	b := decls.Builtins()
	switch ex.Op {
	case Neg:
		operand, err = requireUnboxed(operand, decls, b.Int)
	case Not:
		operand, err = requireUnboxed(operand, decls, b.Bool)
	}
	if err != nil {
		return nil, err
	}
	ex.Operand = operand
	ex.SetType(operand.Type())
	return ex, nil
}

func analyzeBinaryExpr(ex *BinaryExpr, decls *Declarations) (Expression, error) {
	left, err := analyzeExpr(ex.Left, decls)
	if err != nil {
		return nil, err
	}
	right, err := analyzeExpr(ex.Right, decls)
	if err != nil {
		return nil, err
	}
	b := decls.Builtins()
	switch ex.Op {
	case Add, Sub, Mul, Div, Mod:
		if left, err = requireUnboxed(left, decls, b.Int); err != nil {
			return nil, err
		}
		if right, err = requireUnboxed(right, decls, b.Int); err != nil {
			return nil, err
		}
		ex.SetType(b.Int)
	case Lt, Gt, Le, Ge:
		if left, err = requireUnboxed(left, decls, b.Int); err != nil {
			return nil, err
		}
		if right, err = requireUnboxed(right, decls, b.Int); err != nil {
			return nil, err
		}
		ex.SetType(b.Bool)
	case Eq, Ne:
		left, right, err = unifyEqualityOperands(left, right, decls)
		if err != nil {
			return nil, err
		}
		ex.SetType(b.Bool)
	case And, Or, AndThen, OrElse:
		if left, err = requireUnboxed(left, decls, b.Bool); err != nil {
			return nil, err
		}
		if right, err = requireUnboxed(right, decls, b.Bool); err != nil {
			return nil, err
		}
		ex.SetType(b.Bool)
	}
	ex.Left, ex.Right = left, right
	return ex, nil
}

func unifyEqualityOperands(left, right Expression, decls *Declarations) (Expression, Expression, error) {
	left, err := dereference(left, decls)
	if err != nil {
		return nil, nil, err
	}
	right, err = dereference(right, decls)
	if err != nil {
		return nil, nil, err
	}
	b := decls.Builtins()
	numeric := func(t *ClassDeclaration) bool { return t == b.Int || t == b.Integer }
	boolean := func(t *ClassDeclaration) bool { return t == b.Bool || t == b.Boolean }
	lt, rt := left.Type(), right.Type()
	switch {
	case numeric(lt) && numeric(rt):
		if left, err = requireUnboxed(left, decls, b.Int); err != nil {
			return nil, nil, err
		}
		if right, err = requireUnboxed(right, decls, b.Int); err != nil {
			return nil, nil, err
		}
	case boolean(lt) && boolean(rt):
		if left, err = requireUnboxed(left, decls, b.Bool); err != nil {
			return nil, nil, err
		}
		if right, err = requireUnboxed(right, decls, b.Bool); err != nil {
			return nil, nil, err
		}
	default:
		if !b.IsA(lt, rt) && !b.IsA(rt, lt) {
			return nil, nil, contextError(left.Pos(), "cannot compare incompatible types %s and %s", typeName(lt), typeName(rt))
		}
	}
	return left, right, nil
}

func analyzeCallArgs(call *VarOrCall, method *MethodDeclaration, decls *Declarations) error {
	if len(call.Args) != len(method.Params) {
		return contextError(call.Pos(), "method %q expects %d argument(s) but got %d", method.Name(), len(method.Params), len(call.Args))
	}
	for i, arg := range call.Args {
		analyzed, err := analyzeExpr(arg, decls)
		if err != nil {
			return err
		}
		coerced, err := coerceAssignable(analyzed, method.Params[i].ResolvedType(), decls)
		if err != nil {
			return err
		}
		call.Args[i] = coerced
	}
	return nil
}

// dereference loads an l-value's stored value; non-l-values pass through
// unchanged.
func dereference(e Expression, decls *Declarations) (Expression, error) {
	if !e.IsLValue() {
		return e, nil
	}
	return &DerefExpr{exprBase: exprBase{position: e.Pos(), typ: e.Type()}, Operand: e}, nil
}

// requireUnboxed dereferences e if needed and unboxes it if it is a
// boxed wrapper of want, per spec §4.4 step 5 ("Arithmetic/comparison
// operators require unboxed operands; l-value operands are first
// dereferenced; boxed operands are unboxed").
func requireUnboxed(e Expression, decls *Declarations, want *ClassDeclaration) (Expression, error) {
	e, err := dereference(e, decls)
	if err != nil {
		return nil, err
	}
	t := e.Type()
	if t == want {
		return e, nil
	}
	if decls.Builtins().UnboxedTypeFor(t) == want {
		return &UnboxExpr{exprBase: exprBase{position: e.Pos(), typ: want}, Operand: e}, nil
	}
	return nil, contextError(e.Pos(), "expected %s but found %s", typeName(want), typeName(t))
}

// coerceAssignable dereferences value if needed and, if it is an unboxed
// primitive being assigned/passed to a reference-typed target, wraps it
// in a box node (spec §4.4 step 5, first bullet).
func coerceAssignable(value Expression, target *ClassDeclaration, decls *Declarations) (Expression, error) {
	value, err := dereference(value, decls)
	if err != nil {
		return nil, err
	}
	b := decls.Builtins()
	vt := value.Type()
	if vt == target {
		return value, nil
	}
	if boxClass := b.BoxClassFor(vt); boxClass != nil && b.IsA(boxClass, target) {
		return &BoxExpr{exprBase: exprBase{position: value.Pos(), typ: target}, Operand: value}, nil
	}
	if b.IsA(vt, target) {
		return value, nil
	}
	return nil, contextError(value.Pos(), "cannot assign value of type %s to %s", typeName(vt), typeName(target))
}

func isCallExpr(e Expression) bool {
	switch v := e.(type) {
	case *VarOrCall:
		return v.IsCall()
	case *AccessExpr:
		return isCallExpr(v.Right)
	}
	return false
}
