package testing

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sector9660/isofs"
	"github.com/sector9660/isofs/pkg/directory"
)

// ContainsNonASCIIPrintable returns true if the string has any characters
// outside ASCII [32..126], i.e., not a standard printable.
func ContainsNonASCIIPrintable(s string) bool {
	for _, r := range s {
		if r < 32 || r > 126 {
			return true
		}
	}
	return false
}

// GroundTruthEntry is a single record from a reference tool's listing.
type GroundTruthEntry struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	Attr           string `json:"attr"`
	Size           int64  `json:"size"`
	CompressedSize int64  `json:"compressed_size"`
	Name           string `json:"name"`
	IsDirectory    bool   `json:"is_directory"`
}

// LoadGroundTruth reads a JSON ground-truth listing from filePath.
func LoadGroundTruth(filePath string) ([]GroundTruthEntry, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries []GroundTruthEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return entries, nil
}

// Validate walks h's tree and compares it against the ground-truth listing
// at gtPath, printing a summary of any entries missing from the decode or
// present that shouldn't be.
func Validate(h *isofs.Handle, gtPath string) error {
	groundTruth, err := LoadGroundTruth(gtPath)
	if err != nil {
		return err
	}

	decoded := make(map[string]*directory.Entry)
	first := true
	err = h.Walk(nil, func(entry *directory.Entry) error {
		if first {
			first = false
			return nil
		}
		key := strings.TrimPrefix(entry.FullPath(), "/")
		decoded[key] = entry
		if ContainsNonASCIIPrintable(entry.Name()) {
			return fmt.Errorf("non-ASCII printable characters in entry: %s", entry.Name())
		}
		return nil
	})
	if err != nil {
		return err
	}

	gtMap := make(map[string]GroundTruthEntry, len(groundTruth))
	for _, gt := range groundTruth {
		gtMap[strings.TrimPrefix(gt.Name, "/")] = gt
	}

	var missing []GroundTruthEntry
	for name, gt := range gtMap {
		if _, found := decoded[name]; !found {
			missing = append(missing, gt)
		}
	}

	var extra []*directory.Entry
	for name, entry := range decoded {
		if _, found := gtMap[name]; !found {
			extra = append(extra, entry)
		}
	}

	fmt.Println(strings.Repeat("=", 40))
	fmt.Println("VALIDATION RESULTS")
	fmt.Println(strings.Repeat("=", 40))

	if len(missing) == 0 && len(extra) == 0 {
		fmt.Println("All entries match the ground truth!")
		return nil
	}

	if len(missing) > 0 {
		fmt.Println("Missing entries (in ground truth, not decoded):")
		for _, m := range missing {
			t := "FILE"
			if m.IsDirectory {
				t = "DIR"
			}
			fmt.Printf("  - [%s] %s\n", t, m.Name)
		}
	} else {
		fmt.Println("No missing entries.")
	}

	if len(extra) > 0 {
		fmt.Println("\nExtra entries (decoded, not in ground truth):")
		for _, x := range extra {
			t := "FILE"
			if x.IsDir() {
				t = "DIR"
			}
			fmt.Printf("  - [%s] %s\n", t, x.FullPath())
		}
	} else {
		fmt.Println("No extra entries.")
	}

	fmt.Println(strings.Repeat("=", 40))
	return nil
}
