// Package alpm adapts the pacman tool family (pacman, vercmp) into the
// narrow inventory, catalog, and version-ordering interfaces the rest of
// pacscout consumes. All parsing of pacman's text output lives here so a
// format change upstream never touches the reconciler.
package alpm

import (
	"math"
	"strconv"
	"strings"

	"github.com/pacscout/pacscout/internal/errdefs"
)

// sizeUnits maps pacman's IEC unit suffixes to byte multipliers
var sizeUnits = map[string]uint64{
	"B":   1,
	"KiB": 1 << 10,
	"MiB": 1 << 20,
	"GiB": 1 << 30,
	"TiB": 1 << 40,
}

// ParseSize converts pacman's humanized size output ("12.34 MiB",
// "1,024.00 KiB") into bytes, rounding to the nearest byte.
func ParseSize(s string) (uint64, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", ""))
	if len(fields) != 2 {
		return 0, errdefs.Serialization("unrecognized size %q", s)
	}
	mult, ok := sizeUnits[fields[1]]
	if !ok {
		return 0, errdefs.Serialization("unrecognized size unit %q", fields[1])
	}
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || value < 0 {
		return 0, errdefs.Serialization("unrecognized size value %q", fields[0])
	}
	return uint64(math.Round(value * float64(mult))), nil
}

// parseBlocks splits -Qi/-Si style output into per-package field maps. A
// blank line ends a block. Wrapped continuation lines (leading whitespace)
// belong to list-valued fields this package never consumes, so they are
// dropped. The first colon on a line separates key from value; pacman field
// names never contain one.
func parseBlocks(out string) []map[string]string {
	var blocks []map[string]string
	current := map[string]string{}

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, current)
			current = map[string]string{}
		}
	}

	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		current[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	flush()
	return blocks
}

// fieldValue reads one block field, treating pacman's literal "None" as
// absent
func fieldValue(block map[string]string, key string) string {
	v := block[key]
	if v == "None" {
		return ""
	}
	return v
}

// fieldSize parses one humanized size field; absent or unparseable fields
// return nil
func fieldSize(block map[string]string, key string) *uint64 {
	raw := fieldValue(block, key)
	if raw == "" {
		return nil
	}
	size, err := ParseSize(raw)
	if err != nil {
		return nil
	}
	return &size
}
