package main

import (
	goerrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"gopheros/kernel/errors"
	"gopheros/kernel/gate"
	"gopheros/kernel/kfmt"
)

const logPrefix = "[idtgen] "

type config struct {
	asmPath     string
	initPath    string
	externsPath string
	only        string
	verbose     bool
}

func exit(err error) {
	kfmt.NewPrefixWriter(os.Stderr, logPrefix).Printf("error: %s", err.Error())
	os.Exit(1)
}

func parseVector(arg string) (gate.Vector, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, &errors.Error{Module: "show", Message: fmt.Sprintf("%q is not a vector in [0, %d]", arg, gate.NumVectors-1), Err: errors.ErrInvalidParamValue}
	}
	return gate.Vector(v), nil
}

// listVectors prints the category and call target of every vector.
func listVectors(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "VECTOR\tCATEGORY\tTARGET\tSYMBOL\tDESCRIPTION")
	for _, v := range gate.Vectors() {
		c := gate.Classify(v)
		desc := v.String()
		if c.Kind == gate.SpecializedFault {
			desc = c.Fault.Title()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v, c.Kind, c.Target(), v.Symbol(), desc)
	}
	return tw.Flush()
}

func runTool(args []string, stdout, stderr io.Writer) error {
	var (
		cfg config
		fs  = flag.NewFlagSet("idtgen", flag.ContinueOnError)
		log = kfmt.NewPrefixWriter(stderr, logPrefix)
	)

	fs.SetOutput(stderr)
	fs.StringVar(&cfg.asmPath, "asm", "src/idt.s", "the assembly file that receives the interrupt trampolines")
	fs.StringVar(&cfg.initPath, "init", "src/idt_init.inc", "the C include file that installs the IDT descriptors")
	fs.StringVar(&cfg.externsPath, "externs", "src/interrupt_handlers.inc", "the C include file with the trampoline declarations")
	fs.StringVar(&cfg.only, "only", "", "a comma-separated list of artifacts (asm, init, externs) to process")
	fs.BoolVar(&cfg.verbose, "v", false, "report each processed artifact")
	fs.Usage = func() {
		fmt.Fprint(stderr, "idtgen: generate the i386 interrupt trampolines and IDT initialization code\n\n")
		fmt.Fprint(stderr, "Usage: idtgen [options] [generate|check|list|show vector]\n")
		fs.PrintDefaults()
	}

	// The flag set has already reported parse errors and usage to stderr.
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return err
		}
		return &errors.Error{Module: "flags", Message: err.Error(), Err: errors.ErrUsage}
	}

	cmd := "generate"
	if fs.NArg() != 0 {
		cmd = fs.Arg(0)
	}

	switch cmd {
	case "generate", "check":
		if fs.NArg() > 1 {
			return &errors.Error{Module: cmd, Message: "unexpected arguments", Err: errors.ErrInvalidParamValue}
		}
		arts, err := selectArtifacts(artifacts(&cfg), cfg.only)
		if err != nil {
			return err
		}
		if cmd == "check" {
			return check(arts, log, cfg.verbose)
		}
		return generate(arts, log, cfg.verbose)
	case "list":
		return listVectors(stdout)
	case "show":
		if fs.NArg() != 2 {
			return &errors.Error{Module: cmd, Message: "show requires a vector number as an argument", Err: errors.ErrInvalidParamValue}
		}
		v, err := parseVector(fs.Arg(1))
		if err != nil {
			return err
		}
		_, err = gate.NewTrampoline(v).WriteTo(stdout)
		return err
	default:
		return &errors.Error{Module: cmd, Err: errors.ErrUnknownCommand}
	}
}

func main() {
	if err := runTool(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp || goerrors.Is(err, errors.ErrUsage) {
			os.Exit(2)
		}
		exit(err)
	}
}
