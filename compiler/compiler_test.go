package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_ScenarioThree_CounterIncrementedThreeTimes(t *testing.T) {
	src := `CLASS Counter IS
		n: Integer;
		METHOD inc IS BEGIN n := n+1; END METHOD
		METHOD get: Integer IS BEGIN RETURN n; END METHOD
	END CLASS
	CLASS Main IS
		c: Counter;
		METHOD main IS
		BEGIN
			c := NEW Counter;
			c.inc;
			c.inc;
			c.inc;
			WRITE c.get;
		END METHOD
	END CLASS`
	result, err := Compile([]byte(src), Options{})
	assert.NoError(t, err)
	assert.Contains(t, result.Assembly, "Counter_inc:")
	assert.Contains(t, result.Assembly, "Counter_get:")
	assert.Contains(t, result.Assembly, "_writeInt")
}

func TestCompile_ScenarioFive_ReturnCoverageErrorCitesMethodPosition(t *testing.T) {
	src := `CLASS Main IS
		METHOD main IS BEGIN END METHOD
	END CLASS
	CLASS Worker IS
		METHOD compute: Integer IS
		BEGIN
			IF TRUE THEN RETURN 1; END IF;
		END METHOD
	END CLASS`
	_, err := Compile([]byte(src), Options{})
	assert.Error(t, err)
	cerr, ok := err.(*CompileError)
	assert.True(t, ok)
	assert.Equal(t, ContextError, cerr.Kind)
	// "METHOD compute" is on line 5 of the literal source above.
	assert.Equal(t, 5, cerr.Pos.Line)
}

func TestCompile_ScenarioSix_ShortCircuitAvoidsDivideByZeroTrap(t *testing.T) {
	src := `CLASS Main IS
		METHOD main IS
		BEGIN
			IF FALSE AND THEN (1/0 = 0) THEN WRITE 'X'; END IF;
		END METHOD
	END CLASS`
	result, err := Compile([]byte(src), Options{})
	require.NoError(t, err, "the compiler must accept the division by a literal zero: division traps at VM runtime, not compile time")
	assert.NotEmpty(t, result.Assembly)
}

func TestCompile_DefaultHeapAndStackWordsAreHundred(t *testing.T) {
	result, err := Compile([]byte(`CLASS Main IS METHOD main IS BEGIN END METHOD END CLASS`), Options{})
	assert.NoError(t, err)
	assert.Equal(t, 200, countDat(result.Assembly))
}

func TestCompile_CustomHeapAndStackWords(t *testing.T) {
	result, err := Compile([]byte(`CLASS Main IS METHOD main IS BEGIN END METHOD END CLASS`), Options{HeapWords: 5, StackWords: 7})
	assert.NoError(t, err)
	assert.Equal(t, 12, countDat(result.Assembly))
}

func TestCompile_DumpOptionsPopulateResult(t *testing.T) {
	src := `CLASS Main IS METHOD main IS BEGIN WRITE 1; END METHOD END CLASS`
	result, err := Compile([]byte(src), Options{DumpTokens: true, DumpParsed: true, DumpTyped: true, DumpIdents: true})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Tokens)
	assert.NotNil(t, result.Parsed)
	assert.NotNil(t, result.Typed)
	assert.NotEmpty(t, result.Idents)
}

func TestCompile_OptimizeOptionFoldsBeforeEmission(t *testing.T) {
	withOpt, err := Compile([]byte(`CLASS Main IS METHOD main IS BEGIN WRITE 2+3; END METHOD END CLASS`), Options{Optimize: true})
	assert.NoError(t, err)
	withoutOpt, err := Compile([]byte(`CLASS Main IS METHOD main IS BEGIN WRITE 2+3; END METHOD END CLASS`), Options{})
	assert.NoError(t, err)
	assert.Contains(t, withOpt.Assembly, "MRI R5,5")
	assert.Contains(t, withoutOpt.Assembly, "ADD R5,R6")
}

func TestCompile_LexicalErrorAborts(t *testing.T) {
	_, err := Compile([]byte("CLASS Main IS METHOD main IS BEGIN WRITE @; END METHOD END CLASS"), Options{})
	assert.Error(t, err)
	cerr := err.(*CompileError)
	assert.Equal(t, LexicalError, cerr.Kind)
}

func countDat(asm string) int {
	return strings.Count(asm, "DAT 0")
}
