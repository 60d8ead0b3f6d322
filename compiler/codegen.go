package compiler

import (
	"fmt"
	"strings"
)

// Emitter produces the assembly text described in spec §4.6/§6.
//
// The mnemonic list in spec §6 is introduced with "e.g.", i.e. it is
// illustrative of the VM's three-letter directive style rather than
// exhaustive; this emitter additionally uses CLT/CGT/CLE/CGE/CEQ/CNE
// (two-operand accumulator form, same shape as ADD/SUB/MUL/DIV/MOD: "CXX
// Rd,Rs" sets Rd to 1 or 0) for the six relational operators, since the
// base mnemonic set gives no way to test the sign of a subtraction
// result. The stack/frame discipline below (push = increment-then-store,
// pop = load-then-decrement, frame pointer anchored at the saved old
// frame pointer's own slot) is grounded directly on
// original_source/oopsc/declarations/MethodDeclaration.java's prologue/
// epilogue instruction sequence (`ADD R2,R1`; `MMR (R2),R3`; `MRR R3,R2`
// on entry; `MRM R5,(R3)`/`SUB R3,R1` style teardown on exit) and
// original_source/oopsc/expressions/VarOrCall.java's frame-relative and
// attribute-relative address arithmetic, generalized to this compiler's
// own offset numbering (spec §4.4 step 3).
type Emitter struct {
	out       strings.Builder
	decls     *Declarations
	namespace string
	counter   int

	currentMethod  *MethodDeclaration
	methodEndLabel string
}

func NewEmitter(decls *Declarations) *Emitter {
	return &Emitter{decls: decls}
}

// setNamespace/nextLabel/endLabel are grounded on
// original_source/oopsc/streams/CodeStream.java's identically named
// methods: a namespace's label counter restarts at 1 every time the
// emitter opens a new method.
func (e *Emitter) setNamespace(ns string) {
	e.namespace = ns
	e.counter = 1
}

func (e *Emitter) nextLabel() string {
	l := fmt.Sprintf("%s_%d", e.namespace, e.counter)
	e.counter++
	return l
}

func (e *Emitter) emit(format string, args ...interface{}) {
	fmt.Fprintf(&e.out, format+"\n", args...)
}

func (e *Emitter) label(name string) {
	fmt.Fprintf(&e.out, "%s:\n", name)
}

func (e *Emitter) comment(format string, args ...interface{}) {
	fmt.Fprintf(&e.out, "; "+format+"\n", args...)
}

func (e *Emitter) lineMarker(pos Position) {
	fmt.Fprintf(&e.out, "#%d\n", pos.Line)
}

func (e *Emitter) push(reg string) {
	e.emit("ADD R2,R1")
	e.emit("MMR (R2),%s", reg)
}

func (e *Emitter) pop(reg string) {
	e.emit("MRM %s,(R2)", reg)
	e.emit("SUB R2,R1")
}

func methodLabel(owner *ClassDeclaration, m *MethodDeclaration) string {
	return owner.Name() + "_" + m.Name()
}

func vmtLabel(c *ClassDeclaration) string {
	return "_" + c.Name() + "_VMT"
}

// Emit runs the full code-generation pass described in spec §4.6 over an
// analyzed (and optionally optimized) program, returning the assembly
// text.
func Emit(prog *Program, decls *Declarations, heapWords, stackWords int) string {
	e := NewEmitter(decls)
	e.emitPrelude()
	classes := objectClasses(prog, decls)
	for _, c := range classes {
		e.emitVMT(c)
	}
	for _, c := range classes {
		if c.Builtin {
			continue // Object/Integer/Boolean declare no methods of their own
		}
		for _, m := range c.Methods {
			e.emitMethod(c, m)
		}
	}
	e.emitTrailer(heapWords, stackWords)
	return e.out.String()
}

// objectClasses returns every class whose instances are actually
// allocated at runtime: the builtin reference classes plus every
// user-declared class. Int/Bool/Void/NullType are pseudo-types with no
// object representation and are excluded.
func objectClasses(prog *Program, decls *Declarations) []*ClassDeclaration {
	b := decls.Builtins()
	out := []*ClassDeclaration{b.Object, b.Integer, b.Boolean}
	out = append(out, decls.Classes()...)
	return out
}

func (e *Emitter) emitPrelude() {
	e.comment("prelude: R1=1, R2/R3=stack top, R4=heap pointer")
	e.emit("MRI R1,1")
	e.emit("MRI R2,_stack")
	e.emit("MRI R3,_stack")
	e.emit("MRI R4,_heap")
	e.emit("MRI R0,Main_main")
}

func (e *Emitter) emitTrailer(heapWords, stackWords int) {
	e.comment("reserved stack, then heap")
	e.label("_stack")
	for i := 0; i < stackWords; i++ {
		e.emit("DAT 0")
	}
	e.label("_heap")
	for i := 0; i < heapWords; i++ {
		e.emit("DAT 0")
	}
}

func (e *Emitter) emitVMT(c *ClassDeclaration) {
	e.label(vmtLabel(c))
	for _, m := range c.VMT {
		e.emit("DAT %s", methodLabel(m.Owner, m))
	}
}

// emitMethod is grounded on
// original_source/oopsc/declarations/MethodDeclaration.java's generateCode:
// prologue saves the caller's frame pointer and reserves locals; the body
// follows; the epilogue (shared, labeled end_<Class>_<method>) tears the
// frame down and returns by jumping through the saved return address.
func (e *Emitter) emitMethod(owner *ClassDeclaration, m *MethodDeclaration) {
	e.setNamespace(owner.Name() + "_" + m.Name())
	e.currentMethod = m
	e.methodEndLabel = "end_" + owner.Name() + "_" + m.Name()

	e.label(methodLabel(owner, m))
	e.lineMarker(m.Pos())

	e.emit("ADD R2,R1")
	e.emit("MMR (R2),R3")
	e.emit("MRR R3,R2")
	if n := len(m.Locals); n > 0 {
		e.emit("MRI R5,%d", n)
		e.emit("ADD R2,R5")
	}

	e.emitBlock(m.Statements)

	e.label(e.methodEndLabel)
	e.emit("MRM R5,(R3)")
	e.emit("MRR R6,R3")
	e.emit("SUB R6,R1")
	e.emit("MRM R7,(R6)")
	e.emit("MRI R6,%d", len(m.Locals)+len(m.Params)+2)
	e.emit("SUB R2,R6")
	e.emit("MRR R3,R5")
	e.emit("MRR R0,R7")
}

// --- Statements --------------------------------------------------------

func (e *Emitter) emitBlock(stmts []Statement) {
	for _, s := range stmts {
		e.emitStatement(s)
	}
}

func (e *Emitter) emitStatement(s Statement) {
	e.lineMarker(s.Pos())
	switch st := s.(type) {
	case *AssignStatement:
		e.emitAddress(st.Target)
		e.emitValue(st.Value)
		e.pop("R5")
		e.pop("R6")
		e.emit("MMR (R6),R5")
	case *CallStatement:
		e.emitValue(st.Call)
		e.pop("R5")
	case *ReadStatement:
		e.emitAddress(st.Target)
		e.emitRuntimeCall("_readInt")
	case *WriteStatement:
		e.emitValue(st.Value)
		e.emitRuntimeCall("_writeInt")
	case *IfStatement:
		e.emitIf(st)
	case *WhileStatement:
		e.emitWhile(st)
	case *ReturnStatement:
		e.emitReturn(st)
	case *blockStatement:
		e.emitBlock(st.Body)
	case *emptyBlockStatement:
		e.comment("folded away by the optimizer")
	default:
		e.comment("internal: unhandled statement %T", s)
	}
}

// emitRuntimeCall implements READ/WRITE's call to the runtime routines
// named in spec §4.6 item 4 (_readInt/_writeInt): the one argument
// (already pushed by the caller — the target address for READ, the value
// for WRITE) and a return-address label are pushed the same way a direct
// user-method call pushes its arguments and return address; the routine
// itself (outside this module's scope, per spec §1) pops its argument and
// returns through the label with the stack back at its pre-call depth.
func (e *Emitter) emitRuntimeCall(routine string) {
	ret := e.nextLabel()
	e.emit("MRI R6,%s", ret)
	e.push("R6")
	e.emit("MRI R0,%s", routine)
	e.label(ret)
}

func (e *Emitter) emitIf(st *IfStatement) {
	e.emitValue(st.Cond)
	e.pop("R5")
	elseLabel := e.nextLabel()
	endLabel := e.nextLabel()
	e.emit("ISZ R5")
	e.emit("JPC %s,R5", elseLabel)
	e.emitBlock(st.Then)
	e.emit("MRI R0,%s", endLabel)
	e.label(elseLabel)
	e.emitBlock(st.Else)
	e.label(endLabel)
}

func (e *Emitter) emitWhile(st *WhileStatement) {
	startLabel := e.nextLabel()
	endLabel := e.nextLabel()
	e.label(startLabel)
	e.emitValue(st.Cond)
	e.pop("R5")
	e.emit("ISZ R5")
	e.emit("JPC %s,R5", endLabel)
	e.emitBlock(st.Body)
	e.emit("MRI R0,%s", startLabel)
	e.label(endLabel)
}

// emitReturn stores the return value into the slot occupied by _self —
// which is thus replaced on the stack by the call's result, per spec
// §4.6 item 3 — then jumps to the shared epilogue.
func (e *Emitter) emitReturn(st *ReturnStatement) {
	if st.Value != nil {
		e.pushFrameAddress(e.currentMethod.SelfVar.Offset)
		e.emitValue(st.Value)
		e.pop("R5")
		e.pop("R6")
		e.emit("MMR (R6),R5")
	}
	e.emit("MRI R0,%s", e.methodEndLabel)
}

// --- Expressions: addresses --------------------------------------------

// pushFrameAddress pushes R3+offset (offset may be negative), the
// address of a local, parameter, _self, or _base slot.
func (e *Emitter) pushFrameAddress(offset int) {
	e.emit("MRR R6,R3")
	if offset < 0 {
		e.emit("MRI R5,%d", -offset)
		e.emit("SUB R6,R5")
	} else {
		e.emit("MRI R5,%d", offset)
		e.emit("ADD R6,R5")
	}
	e.push("R6")
}

// emitAddress pushes the address of an l-value expression.
func (e *Emitter) emitAddress(expr Expression) {
	switch ex := expr.(type) {
	case *VarOrCall:
		v := ex.Ident.Declaration.(*VarDeclaration)
		e.pushFrameAddress(v.Offset)
	case *AccessExpr:
		v := ex.Right.Ident.Declaration.(*VarDeclaration)
		e.emitValue(ex.Left)
		e.pop("R6")
		e.emit("MRI R5,%d", v.Offset)
		e.emit("ADD R6,R5")
		e.push("R6")
	default:
		e.comment("internal: %T is not an l-value", expr)
	}
}

// --- Expressions: values -------------------------------------------------

func (e *Emitter) emitValue(expr Expression) {
	switch ex := expr.(type) {
	case *LiteralExpr:
		e.emitLiteral(ex)
	case *VarOrCall:
		// Unreachable after semantic analysis: calls are always wrapped
		// in an access through _self, and non-call l-values in a
		// DerefExpr; kept for robustness.
		if ex.IsCall() {
			e.comment("internal: unwrapped call %s", ex.Ident.Name())
			return
		}
		e.emitAddress(ex)
		e.pop("R6")
		e.emit("MRM R5,(R6)")
		e.push("R5")
	case *AccessExpr:
		if ex.Right.IsCall() {
			e.emitCall(ex)
			return
		}
		e.emitAddress(ex)
		e.pop("R6")
		e.emit("MRM R5,(R6)")
		e.push("R5")
	case *NewExpr:
		e.emitNew(ex.Type())
	case *UnaryExpr:
		e.emitUnary(ex)
	case *BinaryExpr:
		e.emitBinary(ex)
	case *BoxExpr:
		e.emitValue(ex.Operand)
		e.emitNew(e.decls.Builtins().BoxClassFor(ex.Operand.Type()))
		e.pop("R7")
		e.pop("R5")
		e.emit("MRI R6,%d", boxedPayloadOffset)
		e.emit("ADD R6,R7")
		e.emit("MMR (R6),R5")
		e.push("R7")
	case *UnboxExpr:
		e.emitValue(ex.Operand)
		e.pop("R6")
		e.emit("MRI R5,%d", boxedPayloadOffset)
		e.emit("ADD R6,R5")
		e.emit("MRM R7,(R6)")
		e.push("R7")
	case *DerefExpr:
		e.emitAddress(ex.Operand)
		e.pop("R6")
		e.emit("MRM R5,(R6)")
		e.push("R5")
	default:
		e.comment("internal: unhandled expression %T", expr)
	}
}

func (e *Emitter) emitLiteral(lit *LiteralExpr) {
	switch lit.Kind {
	case IntegerLiteral:
		e.emit("MRI R5,%d", lit.IntValue)
	case BooleanLiteral:
		if lit.BoolValue {
			e.emit("MRI R5,1")
		} else {
			e.emit("MRI R5,0")
		}
	case NullLiteral:
		e.emit("MRI R5,0")
	}
	e.push("R5")
}

// emitNew implements `NEW T`: bump the heap pointer by size(T), stamp the
// VMT pointer at offset 0, and leave the new object's address on the
// stack (spec §4.6 item 4).
func (e *Emitter) emitNew(class *ClassDeclaration) {
	e.emit("MRR R6,R4")
	e.emit("MRI R5,%d", class.Size)
	e.emit("ADD R4,R5")
	e.emit("MRI R5,%s", vmtLabel(class))
	e.emit("MMR (R6),R5")
	e.push("R6")
}

func (e *Emitter) emitUnary(ex *UnaryExpr) {
	e.emitValue(ex.Operand)
	e.pop("R5")
	switch ex.Op {
	case Neg:
		e.emit("MRI R6,0")
		e.emit("SUB R6,R5")
		e.push("R6")
	case Not:
		e.emit("ISZ R5")
		e.push("R5")
	}
}

func (e *Emitter) emitBinary(ex *BinaryExpr) {
	switch ex.Op {
	case AndThen:
		e.emitAndThen(ex)
		return
	case OrElse:
		e.emitOrElse(ex)
		return
	}

	e.emitValue(ex.Left)
	e.emitValue(ex.Right)
	e.pop("R6")
	e.pop("R5")
	switch ex.Op {
	case Add:
		e.emit("ADD R5,R6")
	case Sub:
		e.emit("SUB R5,R6")
	case Mul:
		e.emit("MUL R5,R6")
	case Div:
		e.emit("DIV R5,R6")
	case Mod:
		e.emit("MOD R5,R6")
	case Lt:
		e.emit("CLT R5,R6")
	case Gt:
		e.emit("CGT R5,R6")
	case Le:
		e.emit("CLE R5,R6")
	case Ge:
		e.emit("CGE R5,R6")
	case Eq:
		e.emit("CEQ R5,R6")
	case Ne:
		e.emit("CNE R5,R6")
	case And:
		e.emit("MUL R5,R6")
	case Or:
		e.emit("ADD R5,R6")
		e.emit("ISZ R5")
		e.emit("ISZ R5")
	}
	e.push("R5")
}

// emitAndThen lowers AND THEN lazily: the right operand is only evaluated
// when the left is true (spec §4.4/§4.5, scenario 6 of spec §8).
func (e *Emitter) emitAndThen(ex *BinaryExpr) {
	e.emitValue(ex.Left)
	e.pop("R5")
	falseLabel := e.nextLabel()
	endLabel := e.nextLabel()
	e.emit("ISZ R5")
	e.emit("JPC %s,R5", falseLabel)
	e.emitValue(ex.Right)
	e.emit("MRI R0,%s", endLabel)
	e.label(falseLabel)
	e.emit("MRI R5,0")
	e.push("R5")
	e.label(endLabel)
}

// emitOrElse lowers OR ELSE lazily: the right operand is only evaluated
// when the left is false.
func (e *Emitter) emitOrElse(ex *BinaryExpr) {
	e.emitValue(ex.Left)
	e.pop("R5")
	trueLabel := e.nextLabel()
	endLabel := e.nextLabel()
	e.emit("JPC %s,R5", trueLabel)
	e.emitValue(ex.Right)
	e.emit("MRI R0,%s", endLabel)
	e.label(trueLabel)
	e.emit("MRI R5,1")
	e.push("R5")
	e.label(endLabel)
}

// emitCall lowers a method call reached through an access expression. A
// call on _self/_base is compiled as a direct call to the statically
// resolved method's own class label; any other receiver is dispatched
// through the VMT slot at the method's VMTIndex (spec §4.4 step 7;
// scenario 4 of spec §8, "disassembly containing an MRM through offset
// 0").
func (e *Emitter) emitCall(ex *AccessExpr) {
	method := ex.Right.Ident.Declaration.(*MethodDeclaration)
	direct := isSelfOrBase(ex.Left)

	e.emitValue(ex.Left) // receiver, pushed as the callee's _self
	for _, arg := range ex.Right.Args {
		e.emitValue(arg)
	}

	var targetReg string
	if !direct {
		// receiver sits len(Args) words below the stack top; looked up
		// after the arguments, whose code uses R5-R7 as scratch
		e.emit("MRR R6,R2")
		e.emit("MRI R5,%d", len(ex.Right.Args))
		e.emit("SUB R6,R5")
		e.emit("MRM R6,(R6)")
		e.emit("MRM R7,(R6)")
		e.emit("MRI R5,%d", method.VMTIndex)
		e.emit("ADD R7,R5")
		e.emit("MRM R7,(R7)")
		targetReg = "R7"
	}

	ret := e.nextLabel()
	e.emit("MRI R6,%s", ret)
	e.push("R6")
	if direct {
		e.emit("MRI R0,%s", methodLabel(method.Owner, method))
	} else {
		e.emit("MRR R0,%s", targetReg)
	}
	e.label(ret)
}

// isSelfOrBase reports whether receiver denotes _self/_base. Semantic
// analysis always wraps an l-value receiver in a DerefExpr (spec §4.4
// step 5), so a bare VarOrCall("_self"/"_base") reaches this point as
// *DerefExpr{Operand: *VarOrCall}; unwrap one level to check the name.
func isSelfOrBase(receiver Expression) bool {
	deref, ok := receiver.(*DerefExpr)
	if !ok {
		return false
	}
	v, ok := deref.Operand.(*VarOrCall)
	if !ok {
		return false
	}
	name := v.Ident.Name()
	return name == "_self" || name == "_base"
}
