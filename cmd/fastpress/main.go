// Command fastpress generates the controller registration file for a
// FastPress application.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/toyz/fastpress/internal/discovery"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fastpress", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		module  = fs.String("module", "", "Module path for imports (defaults to the go.mod module)")
		out     = fs.String("out", ".", "Directory that receives "+discovery.GeneratedFile)
		pkg     = fs.String("pkg", "", "Package name of the generated file (defaults to the output directory's package)")
		clean   = fs.Bool("clean", false, "Delete every "+discovery.GeneratedFile+" in the given directories")
		verbose = fs.Bool("verbose", false, "Print every discovered controller")
		quiet   = fs.Bool("quiet", false, "Only print errors")
	)

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: fastpress [options] <directories...>\n\n")
		fmt.Fprintf(stderr, "Scans *%s files for //fastpress:controller constructors and writes\n", discovery.ControllerSuffix)
		fmt.Fprintf(stderr, "%s with a Controllers() function listing them.\n\n", discovery.GeneratedFile)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  fastpress -out ./cmd/server ./...\n")
		fmt.Fprintf(stderr, "  fastpress -clean ./...\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	dirs := fs.Args()
	if len(dirs) == 0 {
		fmt.Fprintf(stderr, "Error: at least one directory is required\n\n")
		fs.Usage()
		return 2
	}

	level := discovery.LevelInfo
	switch {
	case *quiet:
		level = discovery.LevelQuiet
	case *verbose:
		level = discovery.LevelVerbose
	}
	r := discovery.NewReporter(stdout, stderr, level)
	r.Section("FastPress controller discovery")

	if *clean {
		removed, err := discovery.Clean(dirs)
		for _, f := range removed {
			r.Verbose("removed %s", f)
		}
		if err != nil {
			r.Error("clean failed: %v", err)
			return 1
		}
		r.Success("Removed %d generated file(s)", len(removed))
		return 0
	}

	r.Verbose("directories: %s", strings.Join(dirs, ", "))
	res, err := discovery.Generate(discovery.Options{
		Patterns:   dirs,
		Output:     *out,
		Package:    *pkg,
		ModulePath: *module,
	})
	if err != nil {
		if res != nil {
			r.Diagnostics(res.Diagnostics)
		}
		r.Error("generation failed: %v", err)
		return 1
	}

	for _, e := range res.Entries {
		r.Verbose("%s.%s (priority %d) %s:%d", e.ImportPath, e.Func, e.Priority, e.File, e.Line)
	}
	if len(res.Entries) == 0 {
		r.Warn("no //fastpress:controller constructors found")
	}
	r.Info("Scanned %d director(ies), found %d controller(s)", res.Directories, len(res.Entries))
	r.Success("Wrote %s", res.File)
	return 0
}
