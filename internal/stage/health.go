package stage

import "strings"

// Health reports whether a pipeline stage can run with the current
// configuration and binaries.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy marks name as ready.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy marks name as blocked by detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Detail: strings.TrimSpace(detail)}
}

// Blocked returns "name: detail" for each stage that is not ready, in
// pipeline order.
func Blocked(health []Health) []string {
	var blocked []string
	for _, h := range health {
		if h.Ready {
			continue
		}
		entry := h.Name
		if h.Detail != "" {
			entry += ": " + h.Detail
		}
		blocked = append(blocked, entry)
	}
	return blocked
}
