// Package stacktrace trims runtime stacks to the frames of this module.
package stacktrace

import "strings"

const marker = "/internal/"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" for every frame
// under internal/ in a debug.Stack() dump, innermost first.
func InternalPaths(stack []byte) []string {
	var paths []string
	for _, line := range strings.Split(string(stack), "\n") {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ".go:")
		if idx < 0 {
			continue
		}

		// drop the trailing " +0x1c" offset
		if sp := strings.IndexByte(line[idx:], ' '); sp >= 0 {
			line = line[:idx+sp]
		}

		if at := strings.Index(line, marker); at >= 0 {
			paths = append(paths, line[at+1:])
		}
	}
	return paths
}
