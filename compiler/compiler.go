package compiler

import (
	"oopscompiler/internal/log"
)

// Options controls the optional passes and emitter parameters exposed on
// the CLI (spec §6).
type Options struct {
	DumpTokens bool // -l
	DumpParsed bool // -s
	DumpTyped  bool // -c
	DumpIdents bool // -i
	Optimize   bool // -o
	HeapWords  int  // -hs, default 100
	StackWords int  // -ss, default 100
}

// Result carries both the emitted assembly and the dump artifacts the
// CLI shell may print, so the core stays free of any presentation
// concern (spec §6's -l/-s/-c/-i flags are the CLI's job, not the
// compiler's).
type Result struct {
	Tokens   []Token
	Parsed   *Program
	Typed    *Program
	Idents   []string
	Assembly string
}

// Compile runs the full pipeline of spec §2 over src: lexer, parser,
// declaration table + semantic analysis, an optional optimizer pass, and
// the emitter. It stops and returns the first error encountered, per
// spec §7 ("the first one aborts the pipeline").
//
// Grounded on compiler/internal/compiler.go's Compile(path) staged
// structure, with its bare println progress lines replaced by calls
// through the ambient logger (internal/log) and its dump artifacts
// returned to the caller instead of written to stdout directly, since
// presentation is the CLI shell's responsibility.
func Compile(src []byte, opts Options) (*Result, error) {
	log.Printf("lexing")
	lexer := NewLexer(src)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}
	result := &Result{}
	if opts.DumpTokens {
		result.Tokens = tokens
	}

	log.Printf("parsing")
	parser := NewParser(tokens)
	prog, err := parser.ParseProgram()
	if err != nil {
		return nil, err
	}
	if opts.DumpParsed {
		result.Parsed = prog
	}

	log.Printf("resolving and type-checking")
	builtins := NewBuiltins()
	decls := NewDeclarations(builtins)
	if err := Analyze(prog, decls); err != nil {
		return nil, err
	}
	if opts.DumpTyped {
		result.Typed = prog
	}
	if opts.DumpIdents {
		result.Idents = decls.SortedGlobalNames()
	}

	if opts.Optimize {
		log.Printf("optimizing")
		Optimize(prog)
	}

	log.Printf("emitting")
	heap, stack := opts.HeapWords, opts.StackWords
	if heap <= 0 {
		heap = 100
	}
	if stack <= 0 {
		stack = 100
	}
	result.Assembly = Emit(prog, decls, heap, stack)
	return result, nil
}
