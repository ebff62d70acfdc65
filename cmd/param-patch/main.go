// param-patch - PARAM.in command parameter rewriting
//
// Patches parameter values inside SWMF PARAM.in files without
// disturbing layout. A PARAM.in file is a sequence of command segments:
// a line whose first token starts with '#' opens a command, the lines
// after it carry that command's parameters. This tool locates named
// parameters inside named commands and swaps in new values, leaving
// every other line byte for byte intact.
//
// Replacements are given as repeated -set flags:
//
//	-set '#SOLARWINDFILE:NameSolarWindFile=IMF.dat'
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/param-patch ./cmd/param-patch

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/swxlab/swmf-data-apps/internal/swmf"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// setting is one parsed -set argument.
type setting struct {
	command string
	param   string
	value   string
}

// settingList collects repeated -set flags.
type settingList []setting

func (s *settingList) String() string {
	parts := make([]string, len(*s))
	for i, st := range *s {
		parts[i] = fmt.Sprintf("%s:%s=%s", st.command, st.param, st.value)
	}
	return strings.Join(parts, ",")
}

func (s *settingList) Set(arg string) error {
	colon := strings.Index(arg, ":")
	if colon < 0 {
		return fmt.Errorf("missing ':' in %q (want '#COMMAND:Param=value')", arg)
	}
	command := arg[:colon]
	rest := arg[colon+1:]
	if !strings.HasPrefix(command, "#") {
		return fmt.Errorf("command %q must start with '#'", command)
	}
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return fmt.Errorf("missing '=' in %q (want '#COMMAND:Param=value')", arg)
	}
	param := rest[:eq]
	value := rest[eq+1:]
	if param == "" {
		return fmt.Errorf("empty parameter name in %q", arg)
	}
	*s = append(*s, setting{command: command, param: param, value: value})
	return nil
}

func main() {
	var sets settingList
	flag.Var(&sets, "set", "Replacement as '#COMMAND:Param=value' (repeatable)")
	inPath := flag.String("input", "PARAM.in", "Input PARAM.in file")
	outPath := flag.String("output", "", "Output file (default: patch in place)")
	strict := flag.Bool("strict", false, "Fail if any replacement matches no line")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "param-patch v%s — PARAM.in Parameter Rewriting\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] -set '#COMMAND:Param=value' [...]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -input PARAM.in -set '#SOLARWINDFILE:NameSolarWindFile=IMF.dat'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -input run/PARAM.in -output run/PARAM.in.new \\\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "      -set '#DOAMR:DnAmr=200' -set '#TIMESTEPPING:CflExpl=0.8'\n")
		fmt.Fprintf(os.Stderr, "  %s -strict -set '#STARTTIME:iYear=2014' -input PARAM.in\n", os.Args[0])
	}
	flag.Parse()

	if len(sets) == 0 {
		fmt.Fprintln(os.Stderr, "param-patch: at least one -set is required")
		flag.Usage()
		os.Exit(2)
	}

	repl := swmf.NewReplacements()
	for _, s := range sets {
		repl.Set(s.command, s.param, s.value)
	}

	dest := *outPath
	if dest == "" {
		dest = *inPath
	}

	_, report, err := swmf.PatchFile(*inPath, dest, repl, swmf.PatchOptions{Strict: *strict})
	if err != nil {
		log.Fatalf("param-patch: %v", err)
	}

	fmt.Printf("Patched %d line(s) in %s", report.Replaced, *inPath)
	if dest != *inPath {
		fmt.Printf(" -> %s", dest)
	}
	fmt.Println()
	for _, miss := range report.Unapplied() {
		fmt.Printf("  no match: %s %s\n", miss.Command, miss.Param)
	}
}
