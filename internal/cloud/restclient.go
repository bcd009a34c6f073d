package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// restClient is the default transport: a JSON CRUD client speaking to the
// platform gateway named by the deployment credentials.
type restClient struct {
	base  string
	creds Credentials
	http  *http.Client
}

// NewSession builds a Session backed by the REST transport. The httpClient
// parameter may be nil to use a default with a 60s timeout.
func NewSession(creds Credentials, httpClient *http.Client) *Session {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	c := &restClient{
		base:  strings.TrimRight(creds.AuthURL, "/"),
		creds: creds,
		http:  httpClient,
	}
	return &Session{
		Credentials: creds,
		Images:      &imageClient{c},
		Flavors:     &flavorClient{c},
		Networks:    &networkClient{c},
		Roles:       &roleClient{c},
		Catalog:     &catalogClient{c},
	}
}

// do issues one JSON request. A nil in skips the request body; a nil out
// discards the response body. 404 maps to ErrNotFound.
func (c *restClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

type imageClient struct{ c *restClient }

func (ic *imageClient) List(ctx context.Context) ([]Image, error) {
	var out struct {
		Images []Image `json:"images"`
	}
	if err := ic.c.do(ctx, http.MethodGet, "/images", nil, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}

func (ic *imageClient) Create(ctx context.Context, req CreateImageRequest) (Image, error) {
	var img Image
	err := ic.c.do(ctx, http.MethodPost, "/images", req, &img)
	return img, err
}

func (ic *imageClient) Delete(ctx context.Context, id string) error {
	return ic.c.do(ctx, http.MethodDelete, "/images/"+id, nil, nil)
}

type flavorClient struct{ c *restClient }

func (fc *flavorClient) List(ctx context.Context) ([]Flavor, error) {
	var out struct {
		Flavors []Flavor `json:"flavors"`
	}
	if err := fc.c.do(ctx, http.MethodGet, "/flavors", nil, &out); err != nil {
		return nil, err
	}
	return out.Flavors, nil
}

func (fc *flavorClient) Create(ctx context.Context, req CreateFlavorRequest) (Flavor, error) {
	var flv Flavor
	err := fc.c.do(ctx, http.MethodPost, "/flavors", req, &flv)
	return flv, err
}

func (fc *flavorClient) Delete(ctx context.Context, id string) error {
	return fc.c.do(ctx, http.MethodDelete, "/flavors/"+id, nil, nil)
}

type networkClient struct{ c *restClient }

func (nc *networkClient) ListNetworks(ctx context.Context) ([]Network, error) {
	var out struct {
		Networks []Network `json:"networks"`
	}
	if err := nc.c.do(ctx, http.MethodGet, "/networks", nil, &out); err != nil {
		return nil, err
	}
	return out.Networks, nil
}

func (nc *networkClient) CreateNetwork(ctx context.Context, name string) (Network, error) {
	var net Network
	err := nc.c.do(ctx, http.MethodPost, "/networks", map[string]string{"name": name}, &net)
	return net, err
}

func (nc *networkClient) DeleteNetwork(ctx context.Context, id string) error {
	return nc.c.do(ctx, http.MethodDelete, "/networks/"+id, nil, nil)
}

func (nc *networkClient) CreateSubnet(ctx context.Context, networkID, cidr string) (Subnet, error) {
	var sub Subnet
	in := map[string]string{"network_id": networkID, "cidr": cidr}
	err := nc.c.do(ctx, http.MethodPost, "/subnets", in, &sub)
	return sub, err
}

func (nc *networkClient) DeleteSubnet(ctx context.Context, id string) error {
	return nc.c.do(ctx, http.MethodDelete, "/subnets/"+id, nil, nil)
}

func (nc *networkClient) CreateRouter(ctx context.Context, name string) (Router, error) {
	var router Router
	err := nc.c.do(ctx, http.MethodPost, "/routers", map[string]string{"name": name}, &router)
	return router, err
}

func (nc *networkClient) DeleteRouter(ctx context.Context, id string) error {
	return nc.c.do(ctx, http.MethodDelete, "/routers/"+id, nil, nil)
}

func (nc *networkClient) AttachRouter(ctx context.Context, routerID, subnetID string) error {
	in := map[string]string{"subnet_id": subnetID}
	return nc.c.do(ctx, http.MethodPut, "/routers/"+routerID+"/attach", in, nil)
}

func (nc *networkClient) DetachRouter(ctx context.Context, routerID, subnetID string) error {
	in := map[string]string{"subnet_id": subnetID}
	return nc.c.do(ctx, http.MethodPut, "/routers/"+routerID+"/detach", in, nil)
}

type roleClient struct{ c *restClient }

func (rc *roleClient) List(ctx context.Context) ([]Role, error) {
	var out struct {
		Roles []Role `json:"roles"`
	}
	if err := rc.c.do(ctx, http.MethodGet, "/roles", nil, &out); err != nil {
		return nil, err
	}
	return out.Roles, nil
}

func (rc *roleClient) Create(ctx context.Context, name string) (Role, error) {
	var role Role
	err := rc.c.do(ctx, http.MethodPost, "/roles", map[string]string{"name": name}, &role)
	return role, err
}

func (rc *roleClient) Delete(ctx context.Context, id string) error {
	return rc.c.do(ctx, http.MethodDelete, "/roles/"+id, nil, nil)
}

type catalogClient struct{ c *restClient }

func (cc *catalogClient) Services(ctx context.Context) (map[string]string, error) {
	var out struct {
		Services map[string]string `json:"services"`
	}
	if err := cc.c.do(ctx, http.MethodGet, "/services", nil, &out); err != nil {
		return nil, err
	}
	return out.Services, nil
}
