package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"github.com/prog-lang/purec/pkg/compiler"
)

// Version is the CLI's reported version, set at release time.
const Version = "0.1.0"

var Description = strings.ReplaceAll(`
purec compiles a single source file written in a small, pure,
expression-oriented functional language into either a byte-exact bytecode
image for a stack-based virtual machine, or curried Node.js-flavored
JavaScript source text for execution on a general-purpose host runtime.
`, "\n", " ")

var Purec = cli.New(Description).
	WithArg(cli.NewArg("source", "Path to the source file to compile")).
	WithOption(cli.NewOption("output", "Output artifact path (default main.js)").
		WithChar('o').WithType(cli.TypeString)).
	WithOption(cli.NewOption("arch", "Backend: vm or node (default node)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("version", "Print version and exit").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) (code int) {
	// A malformed lowering that pkg/ast validation should have ruled out
	// panics rather than returning an error (SPEC_FULL.md §7); this is the
	// single recover point that turns that into a diagnostic instead of a
	// bare stack trace, generalizing the teacher's scattered log.Fatalf
	// call sites in pkg/vm/lowering.go and pkg/asm/codegen.go into one.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "internal compiler error: %v\n", r)
			code = 1
		}
	}()

	if _, requested := options["version"]; requested {
		fmt.Println(Version)
		return 0
	}

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "ERROR: missing required argument: source")
		return 1
	}

	output := options["output"]
	if output == "" {
		output = "main.js"
	}
	arch := options["arch"]
	if arch == "" {
		arch = string(compiler.ArchNode)
	}
	if arch != string(compiler.ArchVM) && arch != string(compiler.ArchNode) {
		fmt.Fprintln(os.Stderr, (compiler.UnknownArchError{Got: arch}).Error())
		return 1
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to open input file: %s\n", err)
		return 1
	}

	result, err := compiler.Compile(source, compiler.Arch(arch))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	// No partial output: the file is only created once Compile has
	// already succeeded.
	file, err := os.Create(output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to open output file: %s\n", err)
		return 1
	}
	defer file.Close()

	switch result.Arch {
	case compiler.ArchVM:
		_, err = file.Write(result.Bytecode)
	case compiler.ArchNode:
		_, err = file.Write([]byte(result.Script))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: unable to write output file: %s\n", err)
		return 1
	}

	return 0
}

func main() { os.Exit(Purec.Run(os.Args, os.Stdout)) }
