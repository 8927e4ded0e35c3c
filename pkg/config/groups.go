package config

import "fmt"

// detectGroupCycles validates that computerGroups forms an acyclic graph. It
// reports every cycle found, not just the first.
func detectGroupCycles(groups map[string][]string) []ConfigError {
	var errs []ConfigError

	state := make(map[string]int) // 0 = unvisited, 1 = visiting, 2 = done
	var path []string

	var visit func(name string) bool
	visit = func(name string) bool {
		if state[name] == 2 {
			return true
		}
		if state[name] == 1 {
			errs = append(errs, ConfigError{
				Field:   "computerGroups",
				Message: fmt.Sprintf("cycle detected: %s -> %s", joinPath(path), name),
			})
			return false
		}

		members, ok := groups[name]
		if !ok {
			return true
		}

		state[name] = 1
		path = append(path, name)
		ok = true
		for _, member := range members {
			if !visit(member) {
				ok = false
			}
		}
		path = path[:len(path)-1]
		state[name] = 2
		return ok
	}

	for name := range groups {
		visit(name)
	}

	return errs
}

func joinPath(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += p
	}
	return out
}
