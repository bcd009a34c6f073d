package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/harrison/cloudbench/internal/cloud"
)

// fakeImages is an in-memory ImageService recording create/delete calls.
type fakeImages struct {
	mu      sync.Mutex
	images  []cloud.Image
	creates int
	deleted []string
	listErr error
}

func (f *fakeImages) List(_ context.Context) ([]cloud.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]cloud.Image(nil), f.images...), nil
}

func (f *fakeImages) Create(_ context.Context, req cloud.CreateImageRequest) (cloud.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	img := cloud.Image{ID: fmt.Sprintf("img-%d", f.creates), Name: req.Name, Status: "active"}
	f.images = append(f.images, img)
	return img, nil
}

func (f *fakeImages) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeFlavors is an in-memory FlavorService.
type fakeFlavors struct {
	mu      sync.Mutex
	flavors []cloud.Flavor
	creates int
	deleted []string
}

func (f *fakeFlavors) List(_ context.Context) ([]cloud.Flavor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cloud.Flavor(nil), f.flavors...), nil
}

func (f *fakeFlavors) Create(_ context.Context, req cloud.CreateFlavorRequest) (cloud.Flavor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	flv := cloud.Flavor{ID: fmt.Sprintf("flv-%d", f.creates), Name: req.Name, RAM: req.RAM, VCPUs: req.VCPUs, Disk: req.Disk}
	f.flavors = append(f.flavors, flv)
	return flv, nil
}

func (f *fakeFlavors) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// fakeNetworks is an in-memory NetworkService with injectable failures for
// the compound provisioning steps.
type fakeNetworks struct {
	mu              sync.Mutex
	networks        []cloud.Network
	subnetErr       error
	routerErr       error
	attachErr       error
	creates         int
	deletedNetworks []string
	deletedSubnets  []string
	deletedRouters  []string
	detached        []string
}

func (f *fakeNetworks) ListNetworks(_ context.Context) ([]cloud.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cloud.Network(nil), f.networks...), nil
}

func (f *fakeNetworks) CreateNetwork(_ context.Context, name string) (cloud.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	net := cloud.Network{ID: fmt.Sprintf("nid-%d", f.creates), Name: name, Status: "ACTIVE"}
	f.networks = append(f.networks, net)
	return net, nil
}

func (f *fakeNetworks) DeleteNetwork(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedNetworks = append(f.deletedNetworks, id)
	return nil
}

func (f *fakeNetworks) CreateSubnet(_ context.Context, networkID, cidr string) (cloud.Subnet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subnetErr != nil {
		return cloud.Subnet{}, f.subnetErr
	}
	return cloud.Subnet{ID: "subid-" + networkID, NetworkID: networkID, CIDR: cidr}, nil
}

func (f *fakeNetworks) DeleteSubnet(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedSubnets = append(f.deletedSubnets, id)
	return nil
}

func (f *fakeNetworks) CreateRouter(_ context.Context, name string) (cloud.Router, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.routerErr != nil {
		return cloud.Router{}, f.routerErr
	}
	return cloud.Router{ID: "rid-" + name, Name: name}, nil
}

func (f *fakeNetworks) DeleteRouter(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedRouters = append(f.deletedRouters, id)
	return nil
}

func (f *fakeNetworks) AttachRouter(_ context.Context, routerID, subnetID string) error {
	return f.attachErr
}

func (f *fakeNetworks) DetachRouter(_ context.Context, routerID, subnetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detached = append(f.detached, routerID+"/"+subnetID)
	return nil
}

// fakeRoles is an in-memory RoleService.
type fakeRoles struct {
	mu         sync.Mutex
	roles      []cloud.Role
	creates    int
	deleted    []string
	deleteGone bool // report ErrNotFound on every delete
}

func (f *fakeRoles) List(_ context.Context) ([]cloud.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]cloud.Role(nil), f.roles...), nil
}

func (f *fakeRoles) Create(_ context.Context, name string) (cloud.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	role := cloud.Role{ID: fmt.Sprintf("role-%d", f.creates), Name: name}
	f.roles = append(f.roles, role)
	return role, nil
}

func (f *fakeRoles) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	if f.deleteGone {
		return cloud.ErrNotFound
	}
	return nil
}

// fakeCatalog answers service availability.
type fakeCatalog struct {
	services map[string]string
	err      error
}

func (f *fakeCatalog) Services(_ context.Context) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.services, nil
}

// fakeEnv bundles the fakes behind one session.
type fakeEnv struct {
	images   *fakeImages
	flavors  *fakeFlavors
	networks *fakeNetworks
	roles    *fakeRoles
	catalog  *fakeCatalog
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		images:   &fakeImages{},
		flavors:  &fakeFlavors{},
		networks: &fakeNetworks{},
		roles:    &fakeRoles{},
		catalog: &fakeCatalog{services: map[string]string{
			"compute":       "nova",
			"network":       "neutron",
			"orchestration": "heat",
		}},
	}
}

func (e *fakeEnv) session() *cloud.Session {
	return &cloud.Session{
		Images:   e.images,
		Flavors:  e.flavors,
		Networks: e.networks,
		Roles:    e.roles,
		Catalog:  e.catalog,
	}
}
