// Package cloud defines the capability surface cloudbench needs from the
// target platform: CRUD on images, flavors, network resources and identity
// roles, plus the service catalog. The platform itself is opaque; everything
// here is expressed as interfaces so tests and alternative transports can
// substitute their own implementations.
package cloud

import "errors"

// ErrNotFound is returned when a remote resource does not exist. Cleanup
// paths treat it as success for resources someone else already removed.
var ErrNotFound = errors.New("cloud: resource not found")

// Image is a guest image in the platform catalog.
type Image struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// CreateImageRequest carries the minimum attributes needed to register an
// image.
type CreateImageRequest struct {
	Name            string `json:"name"`
	DiskFormat      string `json:"disk_format"`
	ContainerFormat string `json:"container_format"`
	Visibility      string `json:"visibility"`
	Location        string `json:"location,omitempty"`
}

// Flavor is a compute sizing profile.
type Flavor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	RAM   int    `json:"ram"`
	VCPUs int    `json:"vcpus"`
	Disk  int    `json:"disk"`
}

// CreateFlavorRequest carries the minimum attributes needed to create a
// flavor.
type CreateFlavorRequest struct {
	Name  string `json:"name"`
	RAM   int    `json:"ram"`
	VCPUs int    `json:"vcpus"`
	Disk  int    `json:"disk"`
}

// Network is a virtual network.
type Network struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	External bool   `json:"external"`
}

// Subnet is an address range inside a network.
type Subnet struct {
	ID        string `json:"id"`
	NetworkID string `json:"network_id"`
	CIDR      string `json:"cidr"`
}

// Router connects subnets to an external gateway.
type Router struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Role is an identity role.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
