package buildsys

import "strings"

// defHeader starts every module-definition file.
const defHeader = "EXPORTS"

// ParseExports extracts exported symbol names from the output of "dumpbin /exports".
//
// The relevant part of that output looks like:
//
//	ordinal hint RVA      name
//
//	      1    0 000A1B20 AddNumbers
//	      2    1 000A1B60 GoFunction
//
// A line is a symbol row if it has more than three fields and the first one (the ordinal) is a
// decimal number. The name is the fourth field. Everything else is header or summary noise.
func ParseExports(output string) []string {
	names := []string{}
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Fields(line)
		if len(parts) > 3 && isDecimal(parts[0]) {
			names = append(names, parts[3])
		}
	}
	return names
}

// DefContent renders a module-definition file listing names in order.
// The result has no trailing newline; without names it is just the EXPORTS header.
func DefContent(names []string) string {
	lines := make([]string, 0, len(names)+1)
	lines = append(lines, defHeader)
	lines = append(lines, names...)
	return strings.Join(lines, "\n")
}

func isDecimal(value string) bool {
	if value == "" {
		return false
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
