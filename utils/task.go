package utils

import (
	"strconv"
	"strings"
)

// ParentTaskID derives a sub-task's parent id by trimming the last dash
// segment. The wire format carries no explicit parent pointer; the id
// convention is the contract ("0-1-2" is a child of "0-1", "0" has no parent).
func ParentTaskID(id string) string {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return ""
	}
	return id[:idx]
}

// FormatTaskLabel renders a task id as a human-readable outline number:
// "0-0-1" -> "1.2". The root task has no label.
func FormatTaskLabel(id string) string {
	segments := strings.Split(id, "-")
	if len(segments) == 1 {
		return ""
	}
	parts := make([]string, 0, len(segments)-1)
	for _, s := range segments[1:] {
		n, err := strconv.Atoi(s)
		if err != nil {
			parts = append(parts, s)
			continue
		}
		parts = append(parts, strconv.Itoa(n+1))
	}
	return strings.Join(parts, ".")
}
