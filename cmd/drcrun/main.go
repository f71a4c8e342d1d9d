// drcrun is a small demonstration harness for the drcbe back-end: it
// builds a Backend bound to an in-process MachineState, hand-assembles a
// short UML program, generates native code for it, and (on an arm64
// host) executes it. It exists to exercise the stack end-to-end, not as
// a front end for any real emulator core.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/drcarm64/drcbe"
	"github.com/xyproto/drcarm64/drcconfig"
	"github.com/xyproto/drcarm64/uml"
)

const versionString = "drcrun 0.1.0"

func main() {
	var (
		versionFlag = flag.Bool("version", false, "print version information and exit")
		verbose     = flag.Bool("v", false, "print the generated block's mode and pc before running it")
		debugHook   = flag.Bool("debug-hook", false, "enable the DEBUG opcode's instruction-hook call")
		cacheBytes  = flag.Int("cache-bytes", 0, "code cache size in bytes (0: use drccache's default)")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Println(versionString)
		return
	}

	if err := run(*verbose, *debugHook, *cacheBytes); err != nil {
		fmt.Fprintln(os.Stderr, "drcrun:", err)
		os.Exit(1)
	}
}

// run builds the smallest program that exercises flags and control
// flow: I0 = 39 + 3; if I0 == 42, EXIT 0; else EXIT 1.
func run(verbose, debugHook bool, cacheBytes int) error {
	state := &drcbe.MachineState{}

	cfg := drcconfig.FromEnvironment(drcconfig.Config{
		CacheBytes: cacheBytes,
		DebugHook:  debugHook,
	})

	be, err := drcbe.New(state, nil, nil, cfg)
	if err != nil {
		return fmt.Errorf("new backend: %w", err)
	}
	if err := be.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	doneLabel := uml.CodeLabel{ID: 0}

	instrs := []uml.Instruction{
		setIReg(uml.OpMOV, 4, uml.IReg(0), uml.Imm(39)),
		{
			Op: uml.OpADD, Size: 4, FlagsMask: uml.FlagZ | uml.FlagC | uml.FlagV | uml.FlagS,
			Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0), uml.IReg(0), uml.Imm(3)},
			NumParams: 3,
		},
		{
			Op: uml.OpCMP, Size: 4, FlagsMask: uml.FlagZ | uml.FlagC | uml.FlagV | uml.FlagS,
			Param:     [uml.MaxParams]uml.Parameter{uml.IReg(0), uml.Imm(42)},
			NumParams: 2,
		},
		{
			Op: uml.OpJMP, Cond: uml.CondZ,
			Param:     [uml.MaxParams]uml.Parameter{uml.LabelParam(doneLabel)},
			NumParams: 1,
		},
		setIReg(uml.OpMOV, 4, uml.IReg(1), uml.Imm(1)),
		{
			Op:        uml.OpEXIT,
			Size:      4,
			Param:     [uml.MaxParams]uml.Parameter{uml.IReg(1)},
			NumParams: 1,
		},
		{
			Op:        uml.OpLABEL,
			Param:     [uml.MaxParams]uml.Parameter{uml.LabelParam(doneLabel)},
			NumParams: 1,
		},
		{
			Op:        uml.OpEXIT,
			Size:      4,
			Param:     [uml.MaxParams]uml.Parameter{uml.Imm(0)},
			NumParams: 1,
		},
	}

	const mode, pc = 0, 0x1000
	if err := be.Generate(mode, pc, instrs); err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if verbose {
		fmt.Printf("generated block for mode=%d pc=%#x\n", mode, pc)
	}

	if !be.HashExists(mode, pc) {
		return fmt.Errorf("generated block not registered in hash table")
	}

	if !be.Execute(mode, pc) {
		return fmt.Errorf("execute: no block at mode=%d pc=%#x", mode, pc)
	}

	fmt.Println("ok")
	return nil
}

func setIReg(op uml.Opcode, size uint8, dst, src uml.Parameter) uml.Instruction {
	return uml.Instruction{
		Op:        op,
		Size:      size,
		Param:     [uml.MaxParams]uml.Parameter{dst, src},
		NumParams: 2,
	}
}
