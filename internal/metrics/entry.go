// Central registry for storing time-based agent metrics and exporting them
package metrics

import "strings"

// Creates new metric registry storage
func New() (new *Registry) {
	new = &Registry{}
	return
}

// One series per component and metric name, e.g. "Agent/File/Messenger|written_packets"
func seriesKey(namespace []string, name string) string {
	return strings.Join(namespace, "/") + "|" + name
}
