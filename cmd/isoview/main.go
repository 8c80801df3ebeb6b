package main

import (
	"fmt"
	"os"

	"github.com/bgrewell/usage"

	"github.com/sector9660/isofs"
	"github.com/sector9660/isofs/pkg/directory"
	"github.com/sector9660/isofs/pkg/logging"
)

// displayISOInfo prints general information about the opened image.
func displayISOInfo(h *isofs.Handle, verbose bool) {
	dirCount, fileCount, symlinkCount := 0, 0, 0
	totalSize := int64(0)

	first := true
	h.Walk(nil, func(entry *directory.Entry) error {
		if first {
			first = false
			return nil
		}
		if entry.IsDir() {
			dirCount++
			return nil
		}
		fileCount++
		totalSize += entry.Size()
		if entry.IsSymlink() {
			symlinkCount++
		}
		return nil
	})

	pvd := h.VolumeDescriptorSet().Primary

	fmt.Println("=== ISO Information ===")
	if pvd.VolumeIdentifier != "" {
		fmt.Printf("Volume Name: %s\n", pvd.VolumeIdentifier)
	}
	if pvd.ApplicationIdentifier != "" {
		fmt.Printf("Created By: %s\n", pvd.ApplicationIdentifier)
	}
	if pvd.DataPreparerIdentifier != "" {
		fmt.Printf("Preparer: %s\n", pvd.DataPreparerIdentifier)
	}
	if pvd.PublisherIdentifier != "" {
		fmt.Printf("Publisher: %s\n", pvd.PublisherIdentifier)
	}

	fmt.Printf("Volume Size: %d sectors\n", pvd.VolumeSpaceSize)
	fmt.Printf("Total Files: %d\n", fileCount)
	fmt.Printf("Total Directories: %d\n", dirCount)
	fmt.Printf("Total Size: %d bytes (%.2f MB)\n", totalSize, float64(totalSize)/1024/1024)

	if verbose {
		fmt.Println("\n=== Verbose Information ===")
		fmt.Printf("System Identifier: %s\n", pvd.SystemIdentifier)
		fmt.Printf("Logical Block Size: %d bytes\n", pvd.LogicalBlockSize)
		fmt.Printf("Symbolic Links: %d\n", symlinkCount)
		fmt.Printf("Root Directory Location: %d (LBA)\n", h.Root().Record().LocationOfExtent)

		if h.HasRockRidge() {
			fmt.Println("\n--- Rock Ridge Extensions ---")
			fmt.Println("Rock Ridge Enabled: YES")
		} else {
			fmt.Println("\nRock Ridge Extensions: NOT PRESENT")
		}

		if lba, ok := h.HasElTorito(); ok {
			fmt.Println("\n--- El Torito Boot Extensions ---")
			fmt.Println("El Torito Boot Support: YES")
			fmt.Printf("Boot Catalog LBA: %d\n", lba)
		}
	}

	fmt.Println("=========================")
}

func main() {
	u := usage.NewUsage(
		usage.WithApplicationName("isoview"),
		usage.WithApplicationDescription("isoview is a command-line tool for inspecting ISO9660 images, including Rock Ridge, Joliet, and El Torito extensions. It provides detailed volume information and counts files and directories."),
	)

	help := u.AddBooleanOption("h", "help", false, "Show this help message", "optional", nil)
	verbose := u.AddBooleanOption("v", "verbose", false, "Print verbose output", "optional", nil)
	trace := u.AddBooleanOption("vv", "trace", false, "Print trace-level logging", "optional", nil)
	isoPath := u.AddArgument(1, "iso-path", "Path to the ISO image to inspect", "")
	parsed := u.Parse()

	if !parsed {
		u.PrintError(fmt.Errorf("failed to parse arguments"))
		os.Exit(1)
	}

	if *help {
		u.PrintUsage()
		os.Exit(0)
	}

	if isoPath == nil || *isoPath == "" {
		u.PrintError(fmt.Errorf("path to the iso file <iso-path> must be provided"))
		os.Exit(1)
	}

	var opts []isofs.Option
	switch {
	case *trace:
		opts = append(opts, isofs.WithLogger(logging.NewSimpleLogger(os.Stderr, logging.TRACE, true)))
	case *verbose:
		opts = append(opts, isofs.WithLogger(logging.NewSimpleLogger(os.Stderr, logging.DEBUG, true)))
	}

	h, err := isofs.Open(*isoPath, opts...)
	if err != nil {
		u.PrintError(err)
		os.Exit(1)
	}
	defer h.Close()

	displayISOInfo(h, *verbose)
}
