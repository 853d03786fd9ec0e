package sample

import "fmt"

// Built-in layouts for the sysstat/procps tools the default axes run.
var layouts = map[string]Layout{
	"pidstat": {
		HeaderMarker: "Command",
		LabelColumn:  "Command",
		Ignore:       []string{"Time", "UID", "PID", "CPU"},
	},
	"iostat": {
		HeaderMarker: "Device",
		LabelColumn:  "Device",
	},
	"mpstat": {
		HeaderMarker: "%usr",
		LabelColumn:  "CPU",
	},
	"vmstat": {
		HeaderMarker: "free",
	},
}

// LookupLayout returns the built-in layout for a tool name.
func LookupLayout(name string) (Layout, error) {
	l, ok := layouts[name]
	if !ok {
		return Layout{}, fmt.Errorf("unknown sample layout %q", name)
	}
	return l, nil
}
