package cloud

import "context"

// ImageService is the image catalog capability.
type ImageService interface {
	List(ctx context.Context) ([]Image, error)
	Create(ctx context.Context, req CreateImageRequest) (Image, error)
	Delete(ctx context.Context, id string) error
}

// FlavorService is the compute flavor capability.
type FlavorService interface {
	List(ctx context.Context) ([]Flavor, error)
	Create(ctx context.Context, req CreateFlavorRequest) (Flavor, error)
	Delete(ctx context.Context, id string) error
}

// NetworkService is the network/subnet/router capability.
type NetworkService interface {
	ListNetworks(ctx context.Context) ([]Network, error)
	CreateNetwork(ctx context.Context, name string) (Network, error)
	DeleteNetwork(ctx context.Context, id string) error

	CreateSubnet(ctx context.Context, networkID, cidr string) (Subnet, error)
	DeleteSubnet(ctx context.Context, id string) error

	CreateRouter(ctx context.Context, name string) (Router, error)
	DeleteRouter(ctx context.Context, id string) error
	AttachRouter(ctx context.Context, routerID, subnetID string) error
	DetachRouter(ctx context.Context, routerID, subnetID string) error
}

// RoleService is the identity role capability.
type RoleService interface {
	List(ctx context.Context) ([]Role, error)
	Create(ctx context.Context, name string) (Role, error)
	Delete(ctx context.Context, id string) error
}

// ServiceCatalog answers which services the deployment offers, as a mapping
// from service type to service name.
type ServiceCatalog interface {
	Services(ctx context.Context) (map[string]string, error)
}

// Credentials identify one deployment.
type Credentials struct {
	AuthURL  string
	Username string
	Password string
	Project  string
	Region   string
}

// CredentialsFromConfig extracts credentials from the identity section of a
// two-level cloud configuration mapping.
func CredentialsFromConfig(cfg map[string]map[string]string) Credentials {
	identity := cfg["identity"]
	return Credentials{
		AuthURL:  identity["uri"],
		Username: identity["admin_username"],
		Password: identity["admin_password"],
		Project:  identity["admin_project_name"],
		Region:   identity["region"],
	}
}

// Session bundles the platform capabilities behind one shared connection
// context. A session is read-only-shared across concurrent scenario
// invocations: no component mutates it after construction.
type Session struct {
	Credentials Credentials

	Images   ImageService
	Flavors  FlavorService
	Networks NetworkService
	Roles    RoleService
	Catalog  ServiceCatalog
}
