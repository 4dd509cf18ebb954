package domain

// Taint marks a configuration or runtime condition the management layer
// cannot vouch for.
type Taint uint

const (
	TaintCustomArgv Taint = iota
	TaintCustomMonitor
	TaintHighPrivileges
	TaintShellScripts
	TaintDiskProbing
	TaintExternalLaunch
	TaintCustomHooks
	TaintDeprecatedConfig

	taintLast
)

var taintNames = map[Taint]string{
	TaintCustomArgv:       "custom-argv",
	TaintCustomMonitor:    "custom-monitor",
	TaintHighPrivileges:   "high-privileges",
	TaintShellScripts:     "shell-scripts",
	TaintDiskProbing:      "disk-probing",
	TaintExternalLaunch:   "external-launched",
	TaintCustomHooks:      "custom-hooks",
	TaintDeprecatedConfig: "deprecated-config",
}

var taintsByName = func() map[string]Taint {
	m := make(map[string]Taint, len(taintNames))
	for t, name := range taintNames {
		m[name] = t
	}
	return m
}()

// String returns the stable wire name of the taint.
func (t Taint) String() string {
	return taintNames[t]
}

// TaintFromName resolves a wire name back to its taint.
func TaintFromName(name string) (Taint, bool) {
	t, ok := taintsByName[name]
	return t, ok
}
