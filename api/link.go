package api

// LinkProperties shape traffic leaving each end of a link.
type LinkProperties struct {
	Latency uint32  `yaml:"latency,omitempty"` // in ms
	Loss    float32 `yaml:"loss,omitempty"`    // in percentage
	Rate    uint64  `yaml:"rate,omitempty"`    // in mbps
}

func (p LinkProperties) IsZero() bool {
	return p.Latency == 0 && p.Loss == 0 && p.Rate == 0
}

// IntfPair names both ends of one link; If1 is on the switch side when the
// link has one.
type IntfPair struct {
	If1        string
	If2        string
	Properties LinkProperties
}

// LinkSpec is one entry of the links list of a topology file.
type LinkSpec struct {
	Node1      string         `yaml:"node1"`
	Node2      string         `yaml:"node2"`
	IntfName1  string         `yaml:"intfName1,omitempty"`
	IntfName2  string         `yaml:"intfName2,omitempty"`
	Properties LinkProperties `yaml:"properties,omitempty"`
}
