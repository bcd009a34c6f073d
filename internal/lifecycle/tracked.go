package lifecycle

// ResourceKind classifies a tracked auxiliary resource.
type ResourceKind string

const (
	KindImage   ResourceKind = "image"
	KindFlavor  ResourceKind = "flavor"
	KindNetwork ResourceKind = "network"
	KindRole    ResourceKind = "role"
)

// OptionRef names one section/option in the generated config artifact.
type OptionRef struct {
	Section string
	Option  string
}

// NetworkGroup records the pieces of one compound network provisioning:
// network, its subnets and the router. Partial provisioning still records
// whatever was created so cleanup can remove every piece.
type NetworkGroup struct {
	NetworkID string
	SubnetIDs []string
	RouterID  string
}

// TrackedResource is an auxiliary platform resource created by this run and
// owned until teardown. Discovered pre-existing resources are never tracked;
// they were not ours to delete. Options lists the artifact options the
// resource's identifier was written into, so cleanup can blank them.
type TrackedResource struct {
	Kind    ResourceKind
	ID      string
	Name    string
	Options []OptionRef
	Net     *NetworkGroup // only set for KindNetwork
}
