package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/theckman/yacspin"
	"golang.org/x/term"

	"github.com/sector9660/isofs"
	"github.com/sector9660/isofs/pkg/logging"
	"github.com/sector9660/isofs/pkg/options"
)

func main() {
	debug := flag.Bool("v", false, "Enable verbose (debug) logging")
	trace := flag.Bool("vv", false, "Enable trace logging")

	bootImages := flag.Bool("boot", false, "Extract boot images (El Torito)")
	rockRidge := flag.Bool("rockridge", true, "Enable Rock Ridge support")
	joliet := flag.Bool("joliet", false, "Prefer the Joliet tree over Rock Ridge")
	stripVer := flag.Bool("strip", true, "Strip version info from filenames")

	outputDir := flag.String("o", "./extracted", "Output directory for extracted files")
	bootDir := flag.String("bootdir", "./extracted/[BOOT]", "Output directory for boot images")

	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: isoextract [options] <path-to-iso>")
		fmt.Println("  -v               Enable verbose (debug) logging")
		fmt.Println("  -vv              Enable trace logging")
		fmt.Println("  -boot            Extract boot images (El Torito)")
		fmt.Println("  -rockridge       Enable Rock Ridge support (default: true)")
		fmt.Println("  -joliet          Prefer the Joliet tree over Rock Ridge")
		fmt.Println("  -strip           Strip version info from filenames (default: true)")
		fmt.Println("  -o <directory>   Output directory (default './extracted')")
		fmt.Println("  -bootdir <dir>   Output directory for boot images")
		os.Exit(1)
	}
	isoPath := flag.Arg(0)

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	var spinner *yacspin.Spinner
	if isTTY {
		cfg := yacspin.Config{
			Frequency:       100 * time.Millisecond,
			CharSet:         yacspin.CharSets[9],
			Suffix:          " extracting",
			SuffixAutoColon: true,
			StopCharacter:   "✓",
			StopColors:      []string{"fgGreen"},
		}
		var err error
		spinner, err = yacspin.New(cfg)
		if err == nil {
			spinner.Start()
		}
	}

	progress := func(path string, done, total int64) {
		if spinner == nil {
			return
		}
		spinner.Message(path)
	}

	opts := []isofs.Option{
		isofs.WithElTorito(*bootImages),
		isofs.WithRockRidge(*rockRidge),
		isofs.WithStripVersionSuffix(*stripVer),
		isofs.WithProgressCallback(progress),
	}
	if *joliet {
		opts = append(opts, isofs.WithNamespace(options.NamespaceJoliet))
	}
	switch {
	case *trace:
		opts = append(opts, isofs.WithLogger(logging.NewSimpleLogger(os.Stderr, logging.TRACE, isTTY)))
	case *debug:
		opts = append(opts, isofs.WithLogger(logging.NewSimpleLogger(os.Stderr, logging.DEBUG, isTTY)))
	}

	h, err := isofs.Open(isoPath, opts...)
	if err != nil {
		stopSpinner(spinner, false)
		fmt.Fprintf(os.Stderr, "Failed to open ISO: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	if err := h.ExtractAll(*outputDir, *bootDir); err != nil {
		stopSpinner(spinner, false)
		fmt.Fprintf(os.Stderr, "Failed to extract image: %v\n", err)
		os.Exit(1)
	}

	stopSpinner(spinner, true)
	fmt.Printf("Extraction completed successfully to '%s'.\n", *outputDir)
}

func stopSpinner(s *yacspin.Spinner, ok bool) {
	if s == nil {
		return
	}
	if ok {
		s.Stop()
		return
	}
	s.StopFailMessage("extraction failed")
	s.StopFail()
}
