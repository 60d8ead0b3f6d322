// Command oopscompiler is the CLI shell around the compiler package: it
// parses flags, reads the source file, drives compiler.Compile, and prints
// whichever dumps were requested. The core package never touches stdin,
// stdout, or os.Exit directly (spec §6) — this file is the only place that
// does.
//
// Grounded on _examples/0x2ac-myc/main.go's urfave/cli/v2 cli.App
// construction, flattened from its run/build subcommands into the single
// flat `compile <flags> <source> [<out.asm>]` command spec §6 describes.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/repr"
	"github.com/urfave/cli/v2"

	"oopscompiler/compiler"
	"oopscompiler/internal/log"
)

func main() {
	app := &cli.App{
		Name:      "oopscompiler",
		Usage:     "compile a small class-based OOP source file to stack-machine assembly",
		UsageText: "oopscompiler [flags] <source> [<out.asm>]",
		// spec §6 gives -h its own meaning (print help, exit 2), distinct
		// from cli's built-in -h/--help (exit 0), so the built-in is
		// disabled and -h is declared as an ordinary bool flag below.
		HideHelp: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "c", Usage: "dump the typed AST after semantic analysis"},
			&cli.BoolFlag{Name: "h", Usage: "print help and exit"},
			&cli.IntFlag{Name: "hs", Value: 100, Usage: "reserve N words of heap"},
			&cli.BoolFlag{Name: "i", Usage: "dump the identifier-resolution map"},
			&cli.BoolFlag{Name: "l", Usage: "print each token as scanned"},
			&cli.BoolFlag{Name: "o", Usage: "run the optimizer before code generation"},
			&cli.BoolFlag{Name: "s", Usage: "dump the AST after parsing"},
			&cli.IntFlag{Name: "ss", Value: 100, Usage: "reserve N words of stack"},
			&cli.BoolFlag{Name: "v", Usage: "verbose pipeline logging"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		if code, ok := err.(exitError); ok {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// exitError carries a desired process exit code through cli's error-return
// convention without printing anything extra at the top level.
type exitError int

func (e exitError) Error() string { return "" }

func run(c *cli.Context) error {
	if c.Bool("h") {
		_ = cli.ShowAppHelp(c)
		return exitError(2)
	}
	if c.Args().Len() < 1 {
		fmt.Fprintln(os.Stderr, "oopscompiler: missing source file")
		return exitError(2)
	}
	sourcePath := c.Args().Get(0)
	outPath := c.Args().Get(1)

	log.Toggle(c.Bool("v"))

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Println("cannot be found or created")
		return exitError(2)
	}

	opts := compiler.Options{
		DumpTokens: c.Bool("l"),
		DumpParsed: c.Bool("s"),
		DumpTyped:  c.Bool("c"),
		DumpIdents: c.Bool("i"),
		Optimize:   c.Bool("o"),
		HeapWords:  c.Int("hs"),
		StackWords: c.Int("ss"),
	}

	result, err := compiler.Compile(src, opts)
	if err != nil {
		fmt.Println(err.Error())
		return exitError(1)
	}

	if opts.DumpTokens {
		repr.Println(result.Tokens)
	}
	if opts.DumpParsed {
		repr.Println(result.Parsed)
	}
	if opts.DumpTyped {
		repr.Println(result.Typed)
	}
	if opts.DumpIdents {
		repr.Println(result.Idents)
	}

	if outPath == "" {
		fmt.Print(result.Assembly)
		return nil
	}
	if err := os.WriteFile(outPath, []byte(result.Assembly), 0o644); err != nil {
		fmt.Println("cannot be found or created")
		return exitError(2)
	}
	return nil
}
