// Package computer implements computer discovery: enumerating
// the subdirectories of a save's computercraft/computer/ tree into Computer
// records.
package computer

import (
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ccsync/ccsync/pkg/ccsyncfs"
	"github.com/ccsync/ccsync/pkg/save"
)

// Computer is a discovered in-game computer. It is a value-typed snapshot,
// immutable and safe to share by reference, with a lifetime of one planning
// cycle.
type Computer struct {
	// ID is the computer's id, which is simply its directory name (decimal
	// integer as text, though discovery does not validate the format).
	ID string
	// Path is the absolute, normalized path to the computer's directory.
	Path string
	// ShortPath is a display-oriented relative form, e.g. "computercraft/computer/3".
	ShortPath string
}

// ignoredNames are directory entries under computercraft/computer/ that are
// never treated as computers.
var ignoredNames = map[string]bool{
	".git":      true,
	".vscode":   true,
	".DS_Store": true,
}

// Find lists the immediate subdirectories of <saveDir>/computercraft/computer/,
// excluding the fixed ignore set, and returns one Computer per remaining
// entry. The directory name is used directly as the computer id; no further
// validation of the name is performed. Output is sorted: numeric
// ids ascending first, then non-numeric ids in lexicographic order.
func Find(saveDir string) ([]Computer, error) {
	normalized, err := ccsyncfs.NormalizeAbsolute(saveDir)
	if err != nil {
		return nil, errors.Wrap(err, "unable to normalize save directory path")
	}

	computersDir := ccsyncfs.Join(normalized, save.ComputersSubpath)
	entries, err := os.ReadDir(ccsyncfs.ToOSPath(computersDir))
	if err != nil {
		return nil, errors.Wrap(err, "unable to list computer directories")
	}

	var computers []Computer
	for _, entry := range entries {
		if !entry.IsDir() || ignoredNames[entry.Name()] {
			continue
		}
		id := entry.Name()
		computers = append(computers, Computer{
			ID:        id,
			Path:      ccsyncfs.Join(computersDir, id),
			ShortPath: ccsyncfs.Join("computercraft/computer", id),
		})
	}

	sortComputers(computers)

	return computers, nil
}

// sortComputers sorts numeric ids ascending first, then non-numeric ids
// lexicographically.
func sortComputers(computers []Computer) {
	sort.Slice(computers, func(i, j int) bool {
		a, aIsNum := asNumericID(computers[i].ID)
		b, bIsNum := asNumericID(computers[j].ID)
		switch {
		case aIsNum && bIsNum:
			return a < b
		case aIsNum && !bIsNum:
			return true
		case !aIsNum && bIsNum:
			return false
		default:
			return computers[i].ID < computers[j].ID
		}
	})
}

func asNumericID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
