package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emitSource(t *testing.T, src string) string {
	prog, decls, err := analyzeSource(t, src)
	require.NoError(t, err)
	return Emit(prog, decls, 10, 10)
}

func TestEmit_PreludeJumpsToMainMain(t *testing.T) {
	asm := emitSource(t, `CLASS Main IS METHOD main IS BEGIN END METHOD END CLASS`)
	assert.Contains(t, asm, "MRI R0,Main_main")
	assert.True(t, strings.HasPrefix(asm, "; prelude"))
}

func TestEmit_ScenarioOne_WriteArithmeticResult(t *testing.T) {
	asm := emitSource(t, `CLASS Main IS METHOD main IS BEGIN WRITE 1+2; END METHOD END CLASS`)
	assert.Contains(t, asm, "ADD R5,R6")
	assert.Contains(t, asm, "_writeInt")
}

func TestEmit_ScenarioTwo_IfThenElseWritesCharacter(t *testing.T) {
	asm := emitSource(t, `CLASS Main IS
		METHOD main IS
		BEGIN
			IF 1<2 THEN WRITE 'Y'; ELSE WRITE 'N'; END IF;
		END METHOD
	END CLASS`)
	assert.Contains(t, asm, "CLT R5,R6")
	assert.Contains(t, asm, "ISZ R5")
	assert.Contains(t, asm, "JPC")
}

func TestEmit_ScenarioFour_VirtualDispatchThroughVMT(t *testing.T) {
	asm := emitSource(t, `CLASS Shape IS
		METHOD speak IS BEGIN END METHOD
	END CLASS
	CLASS Circle EXTENDS Shape IS
		METHOD speak IS BEGIN END METHOD
	END CLASS
	CLASS Square EXTENDS Shape IS
		METHOD speak IS BEGIN END METHOD
	END CLASS
	CLASS Main IS
		s: Shape;
		METHOD main IS
		BEGIN
			s := NEW Circle;
			s.speak;
			s := NEW Square;
			s.speak;
		END METHOD
	END CLASS`)
	// dispatch through the callee's VMT slot: load the VMT pointer from
	// offset 0 of the receiver, then index into it.
	assert.Contains(t, asm, "MRM R7,(R6)")
	assert.Contains(t, asm, "ADD R7,R5")
	assert.Contains(t, asm, "MRM R7,(R7)")
	assert.Contains(t, asm, "_Shape_VMT")
	assert.Contains(t, asm, "_Circle_VMT")
	assert.Contains(t, asm, "_Square_VMT")
}

func TestEmit_SelfCallIsDirectNotVirtual(t *testing.T) {
	asm := emitSource(t, `CLASS Main IS
		METHOD main IS BEGIN SELF.helper; END METHOD
		METHOD helper IS BEGIN END METHOD
	END CLASS`)
	assert.Contains(t, asm, "MRI R0,Main_helper")
}

func TestEmit_NewStampsVMTPointerAndBumpsHeap(t *testing.T) {
	asm := emitSource(t, `CLASS Widget IS END CLASS
	CLASS Main IS
		w: Widget;
		METHOD main IS BEGIN w := NEW Widget; END METHOD
	END CLASS`)
	assert.Contains(t, asm, "_Widget_VMT")
	assert.Contains(t, asm, "ADD R4,R5")
}

func TestEmit_EpilogueTeardownAccountsForLocalsAndParams(t *testing.T) {
	asm := emitSource(t, `CLASS Main IS
		METHOD main IS BEGIN helper(1,2); END METHOD
		METHOD helper(a: Integer; b: Integer) IS
			x: Integer;
		BEGIN
		END METHOD
	END CLASS`)
	lines := strings.Split(asm, "\n")
	idx := -1
	for i, l := range lines {
		if l == "Main_helper:" {
			idx = i
			break
		}
	}
	assert.NotEqual(t, -1, idx)
	// the epilogue's teardown constant must be locals(1) + params(2) + 2 == 5
	found := false
	for _, l := range lines[idx:] {
		if l == "MRI R6,5" {
			found = true
			break
		}
	}
	assert.True(t, found, "epilogue teardown must deallocate locals, params, the saved frame pointer and the return address")
}

func TestEmit_RuntimeCallsForReadAndWrite(t *testing.T) {
	asm := emitSource(t, `CLASS Main IS
		v: Integer;
		METHOD main IS
		BEGIN
			READ v;
			WRITE v;
		END METHOD
	END CLASS`)
	assert.Contains(t, asm, "_readInt")
	assert.Contains(t, asm, "_writeInt")
}
