package predict

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLabels reads a class label list out of model metadata. Exporters
// write either a plain comma-separated list ("person,bicycle,car") or a
// Python dict repr ("{0: 'person', 1: 'bicycle'}"). The returned slice is
// ordered by class index.
func ParseLabels(names string) ([]string, error) {
	names = strings.TrimSpace(names)
	if names == "" {
		return nil, nil
	}
	if strings.HasPrefix(names, "{") {
		return parseDictLabels(names)
	}
	parts := strings.Split(names, ",")
	labels := make([]string, 0, len(parts))
	for _, p := range parts {
		labels = append(labels, strings.TrimSpace(p))
	}
	return labels, nil
}

func parseDictLabels(names string) ([]string, error) {
	inner := strings.TrimSpace(names)
	inner = strings.TrimPrefix(inner, "{")
	inner = strings.TrimSuffix(inner, "}")
	byIndex := map[int]string{}
	maxIndex := -1
	for _, entry := range splitTopLevel(inner) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		colon := strings.Index(entry, ":")
		if colon < 0 {
			return nil, fmt.Errorf("invalid label entry '%v'", entry)
		}
		index, err := strconv.Atoi(strings.TrimSpace(entry[:colon]))
		if err != nil {
			return nil, fmt.Errorf("invalid label index in '%v': %w", entry, err)
		}
		label := strings.TrimSpace(entry[colon+1:])
		label = strings.Trim(label, "'\"")
		byIndex[index] = label
		if index > maxIndex {
			maxIndex = index
		}
	}
	labels := make([]string, maxIndex+1)
	for i, label := range byIndex {
		labels[i] = label
	}
	return labels, nil
}

// splitTopLevel splits on commas that are not inside single or double quotes,
// so labels like "traffic light, red" survive.
func splitTopLevel(s string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ',':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
