package api

// HostKind selects how a host is backed.
type HostKind string

const (
	KindNamespace HostKind = "namespace"
	KindContainer HostKind = "container"
)

// SwitchKind selects the switch device implementation.
type SwitchKind string

const (
	SwitchLinux SwitchKind = "linux"
	SwitchOVS   SwitchKind = "ovs"
)

// HostParams are the recognized per-host options. Unrecognized keys of a
// topology file end up in Extra.
type HostParams struct {
	Kind HostKind `yaml:"kind,omitempty"`
	// IP is assigned to the first interface of the host, "addr[/plen]".
	IP           string `yaml:"ip,omitempty"`
	DefaultRoute string `yaml:"defaultRoute,omitempty"`
	// PrivateMounts are "[/external/path:]/internal/path" entries.
	PrivateMounts []string `yaml:"privateMounts,omitempty"`
	// Image is the container image of container hosts.
	Image string `yaml:"image,omitempty"`
	// Namespaces adds optional namespaces on top of net, mount and uts.
	Namespaces NamespaceFlags `yaml:"namespaces,omitempty"`
	// KeepHostname leaves the UTS hostname untouched.
	KeepHostname bool `yaml:"keepHostname,omitempty"`

	Extra map[string]any `yaml:",inline"`
}

type NamespaceFlags struct {
	Cgroup bool `yaml:"cgroup,omitempty"`
	IPC    bool `yaml:"ipc,omitempty"`
	PID    bool `yaml:"pid,omitempty"`
	Time   bool `yaml:"time,omitempty"`
	User   bool `yaml:"user,omitempty"`
}

type SwitchParams struct {
	Kind SwitchKind `yaml:"kind,omitempty"`

	Extra map[string]any `yaml:",inline"`
}
