// Package lifecycle discovers or provisions the auxiliary platform
// resources the verification suite needs (images, flavors, networks,
// identity roles), writes their identifiers into the generated config
// artifact, and guarantees cleanup of everything it created.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/cloudbench/internal/cloud"
	"github.com/harrison/cloudbench/internal/config"
	"github.com/harrison/cloudbench/internal/genconf"
)

// Logger is the subset of logging the manager needs. It may be nil.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// OptionOutcome tags what ConfigureOption did.
type OptionOutcome int

const (
	// OptionSkipped means the option was already populated; the helper was
	// never invoked (manual override wins).
	OptionSkipped OptionOutcome = iota
	// OptionWritten means the helper supplied a value that was written.
	OptionWritten
)

// helperFunc obtains a value for one artifact option, possibly performing
// discovery or creation on the platform. A helper that created a resource
// returns its tracked record so the written options can be attached to it.
type helperFunc func(ctx context.Context) (value string, tr *TrackedResource, err error)

// configureStep mutates the generated config. Steps run in a statically
// declared order during Setup.
type configureStep struct {
	name string
	fn   func(ctx context.Context) error
}

// Manager is the resource lifecycle manager for one deployment. It is the
// sole owner of its tracked-resource bookkeeping; setup and teardown are
// single call paths, so no locking is needed.
type Manager struct {
	cfg        *config.Config
	sess       *cloud.Session
	confPath   string
	deployment string
	logger     Logger
	httpClient *http.Client

	conf     *genconf.Document
	services map[string]string
	tracked  []*TrackedResource
}

// NewManager constructs a Manager writing into the artifact at confPath.
// The deployment name scopes cache paths. logger may be nil.
func NewManager(cfg *config.Config, sess *cloud.Session, confPath, deployment string, logger Logger) *Manager {
	return &Manager{
		cfg:        cfg,
		sess:       sess,
		confPath:   confPath,
		deployment: deployment,
		logger:     logger,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// SetHTTPClient replaces the image download client. Intended for tests.
func (m *Manager) SetHTTPClient(c *http.Client) {
	m.httpClient = c
}

// Tracked returns the resources provisioned by this run, in creation order.
func (m *Manager) Tracked() []*TrackedResource {
	return m.tracked
}

// RestoreTracked seeds the manager with resources recorded by an earlier
// run, so a later process can tear them down.
func (m *Manager) RestoreTracked(tracked []*TrackedResource) {
	m.tracked = append(m.tracked, tracked...)
}

// Setup reads the artifact, runs every configuration step in order, and
// writes the artifact back exactly once. If any step fails, everything
// created before the failure point is cleaned up before Setup returns, so
// no exit path leaks resources.
func (m *Manager) Setup(ctx context.Context) (err error) {
	defer func() {
		if err != nil && len(m.tracked) > 0 {
			if cleanupErr := m.Teardown(ctx); cleanupErr != nil {
				m.warnf("cleanup after failed setup: %v", cleanupErr)
			}
		}
	}()

	m.conf, err = genconf.Load(m.confPath)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(m.cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	m.services, err = m.sess.Catalog.Services(ctx)
	if err != nil {
		return acquisitionErr("catalog", err, "query service catalog")
	}

	if err = m.ensureRoles(ctx); err != nil {
		return err
	}

	steps := []configureStep{
		{"scenario img_dir", m.configureImageDir},
		{"scenario img_file", m.configureImageFile},
		{"compute image refs", m.configureImageRefs},
		{"compute flavor refs", m.configureFlavorRefs},
		{"compute fixed network", m.configureFixedNetwork},
		{"orchestration instance type", m.configureOrchestration},
	}
	for _, step := range steps {
		m.debugf("configure step: %s", step.name)
		if err = step.fn(ctx); err != nil {
			return fmt.Errorf("configure %s: %w", step.name, err)
		}
	}

	return m.conf.Save(m.confPath)
}

// Teardown deletes every resource this run provisioned, blanks the artifact
// options each one populated, and persists the artifact. Resources that were
// merely discovered are left untouched. A second call is a no-op.
func (m *Manager) Teardown(ctx context.Context) error {
	if len(m.tracked) == 0 {
		return nil
	}

	// The artifact is re-read from disk: another process may have rewritten
	// it since setup.
	conf, err := genconf.Load(m.confPath)
	if err != nil {
		if m.conf == nil {
			return err
		}
		conf = m.conf
	}

	var errs []error
	for i := len(m.tracked) - 1; i >= 0; i-- {
		tr := m.tracked[i]
		m.debugf("deleting %s %s", tr.Kind, tr.ID)
		if err := m.deleteResource(ctx, tr); err != nil {
			errs = append(errs, fmt.Errorf("delete %s %s: %w", tr.Kind, tr.ID, err))
		}
		for _, ref := range tr.Options {
			conf.Blank(ref.Section, ref.Option)
		}
	}
	m.tracked = nil
	m.conf = conf

	if err := conf.Save(m.confPath); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// deleteResource issues the delete call matching the resource kind. Role
// deletion tolerates a resource someone else already removed.
func (m *Manager) deleteResource(ctx context.Context, tr *TrackedResource) error {
	switch tr.Kind {
	case KindImage:
		return m.sess.Images.Delete(ctx, tr.ID)
	case KindFlavor:
		return m.sess.Flavors.Delete(ctx, tr.ID)
	case KindRole:
		if err := m.sess.Roles.Delete(ctx, tr.ID); err != nil && !errors.Is(err, cloud.ErrNotFound) {
			return err
		}
		return nil
	case KindNetwork:
		return m.deleteNetworkGroup(ctx, tr.Net)
	}
	return fmt.Errorf("unknown resource kind %q", tr.Kind)
}

// deleteNetworkGroup removes a compound network in reverse creation order:
// router interfaces, router, subnets, then the network itself.
func (m *Manager) deleteNetworkGroup(ctx context.Context, g *NetworkGroup) error {
	if g == nil {
		return nil
	}
	var errs []error
	if g.RouterID != "" {
		for _, subnetID := range g.SubnetIDs {
			if err := m.sess.Networks.DetachRouter(ctx, g.RouterID, subnetID); err != nil && !errors.Is(err, cloud.ErrNotFound) {
				errs = append(errs, err)
			}
		}
		if err := m.sess.Networks.DeleteRouter(ctx, g.RouterID); err != nil {
			errs = append(errs, err)
		}
	}
	for _, subnetID := range g.SubnetIDs {
		if err := m.sess.Networks.DeleteSubnet(ctx, subnetID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.sess.Networks.DeleteNetwork(ctx, g.NetworkID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ConfigureOption writes one artifact option. A pre-populated option is left
// untouched and the helper is never invoked. Otherwise the helper's value is
// written into the option and into every still-empty sibling option, and all
// written options are attached to the helper's tracked resource for cleanup.
func (m *Manager) ConfigureOption(ctx context.Context, ref OptionRef, helper helperFunc, siblings ...OptionRef) (OptionOutcome, error) {
	if m.conf.Has(ref.Section, ref.Option) {
		m.debugf("option %s.%s set manually, skipping", ref.Section, ref.Option)
		return OptionSkipped, nil
	}

	value, tr, err := helper(ctx)
	if err != nil {
		return OptionSkipped, err
	}

	written := []OptionRef{ref}
	m.conf.Set(ref.Section, ref.Option, value)
	for _, sibling := range siblings {
		if !m.conf.Has(sibling.Section, sibling.Option) {
			m.conf.Set(sibling.Section, sibling.Option, value)
			written = append(written, sibling)
		}
	}
	if tr != nil {
		tr.Options = append(tr.Options, written...)
	}
	return OptionWritten, nil
}

// track records a provisioned resource for cleanup and returns its record.
func (m *Manager) track(tr *TrackedResource) *TrackedResource {
	m.tracked = append(m.tracked, tr)
	return tr
}

// trackedByID finds the record of a resource this run provisioned. Discovery
// helpers use it so an option that resolves to a resource we created gets
// attached to the same record and is blanked on teardown.
func (m *Manager) trackedByID(kind ResourceKind, id string) *TrackedResource {
	for _, tr := range m.tracked {
		if tr.Kind == kind && tr.ID == id {
			return tr
		}
	}
	return nil
}

func (m *Manager) serviceAvailable(serviceType string) bool {
	_, ok := m.services[serviceType]
	return ok
}

func (m *Manager) configureImageDir(_ context.Context) error {
	if !m.conf.Has("scenario", "img_dir") {
		m.conf.Set("scenario", "img_dir", m.cfg.DataDir)
	}
	return nil
}

func (m *Manager) configureImageFile(ctx context.Context) error {
	_, err := m.ConfigureOption(ctx, OptionRef{"scenario", "img_file"}, m.acquireImageFile)
	return err
}

func (m *Manager) configureImageRefs(ctx context.Context) error {
	for _, option := range []string{"image_ref", "image_ref_alt"} {
		if _, err := m.ConfigureOption(ctx, OptionRef{"compute", option}, m.discoverOrCreateImage); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) configureFlavorRefs(ctx context.Context) error {
	refs := []struct {
		option string
		ram    int
	}{
		{"flavor_ref", m.cfg.Flavors.RefRAM},
		{"flavor_ref_alt", m.cfg.Flavors.RefAltRAM},
	}
	for _, ref := range refs {
		helper := m.flavorHelper(ref.ram)
		if _, err := m.ConfigureOption(ctx, OptionRef{"compute", ref.option}, helper); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) configureFixedNetwork(ctx context.Context) error {
	if !m.serviceAvailable("network") {
		return nil
	}
	_, err := m.ConfigureOption(ctx,
		OptionRef{"compute", "fixed_network_name"},
		m.discoverOrCreateNetwork,
		OptionRef{"validation", "network_for_ssh"})
	return err
}

func (m *Manager) configureOrchestration(ctx context.Context) error {
	if !m.serviceAvailable("orchestration") {
		return nil
	}
	_, err := m.ConfigureOption(ctx,
		OptionRef{"orchestration", "instance_type"},
		m.flavorHelper(m.cfg.Flavors.HeatRAM))
	return err
}

// ensureRoles creates any missing identity role the verification suite
// expects. Pre-existing roles are reused and never tracked.
func (m *Manager) ensureRoles(ctx context.Context) error {
	existing, err := m.sess.Roles.List(ctx)
	if err != nil {
		return acquisitionErr(KindRole, err, "list roles")
	}
	present := make(map[string]bool, len(existing))
	for _, role := range existing {
		present[strings.ToLower(role.Name)] = true
	}

	for _, name := range m.cfg.Roles {
		if present[strings.ToLower(name)] {
			m.debugf("role %s already exists", name)
			continue
		}
		role, err := m.sess.Roles.Create(ctx, name)
		if err != nil {
			return acquisitionErr(KindRole, err, "create role %s", name)
		}
		m.infof("created role %s", name)
		m.track(&TrackedResource{Kind: KindRole, ID: role.ID, Name: role.Name})
	}
	return nil
}

// discoverImage returns the first catalog image whose name matches the
// configured substring, or nil when none matches.
func (m *Manager) discoverImage(ctx context.Context) (*cloud.Image, error) {
	images, err := m.sess.Images.List(ctx)
	if err != nil {
		return nil, err
	}
	match := strings.ToLower(m.cfg.Image.NameMatch)
	for i := range images {
		if strings.Contains(strings.ToLower(images[i].Name), match) {
			return &images[i], nil
		}
	}
	return nil, nil
}

// discoverOrCreateImage reuses a matching catalog image, or registers a new
// one from the configured URL and tracks it for cleanup.
func (m *Manager) discoverOrCreateImage(ctx context.Context) (string, *TrackedResource, error) {
	img, err := m.discoverImage(ctx)
	if err != nil {
		return "", nil, acquisitionErr(KindImage, err, "list images")
	}
	if img != nil {
		m.debugf("discovered image %s (%s)", img.Name, img.ID)
		return img.ID, m.trackedByID(KindImage, img.ID), nil
	}

	// The created name contains the match substring, so a later discovery
	// pass finds this image instead of creating another.
	created, err := m.sess.Images.Create(ctx, cloud.CreateImageRequest{
		Name:            m.resourceName(m.cfg.Image.NameMatch),
		DiskFormat:      m.cfg.Image.DiskFormat,
		ContainerFormat: m.cfg.Image.ContainerFormat,
		Visibility:      "public",
		Location:        m.cfg.Image.URL,
	})
	if err != nil {
		return "", nil, acquisitionErr(KindImage, err, "create image")
	}
	m.infof("created image %s", created.ID)
	tr := m.track(&TrackedResource{Kind: KindImage, ID: created.ID, Name: created.Name})
	return created.ID, tr, nil
}

// flavorHelper returns a helper that discovers or creates a flavor with at
// least ram megabytes of memory.
func (m *Manager) flavorHelper(ram int) helperFunc {
	return func(ctx context.Context) (string, *TrackedResource, error) {
		return m.discoverOrCreateFlavor(ctx, ram)
	}
}

// discoverOrCreateFlavor reuses the smallest flavor satisfying the memory
// requirement, or creates one with the minimum necessary attributes.
func (m *Manager) discoverOrCreateFlavor(ctx context.Context, ram int) (string, *TrackedResource, error) {
	flavors, err := m.sess.Flavors.List(ctx)
	if err != nil {
		return "", nil, acquisitionErr(KindFlavor, err, "list flavors")
	}
	var best *cloud.Flavor
	for i := range flavors {
		if flavors[i].RAM < ram {
			continue
		}
		if best == nil || flavors[i].RAM < best.RAM {
			best = &flavors[i]
		}
	}
	if best != nil {
		m.debugf("discovered flavor %s (%d MB)", best.ID, best.RAM)
		return best.ID, m.trackedByID(KindFlavor, best.ID), nil
	}

	created, err := m.sess.Flavors.Create(ctx, cloud.CreateFlavorRequest{
		Name:  m.resourceName("flavor"),
		RAM:   ram,
		VCPUs: 1,
		Disk:  0,
	})
	if err != nil {
		return "", nil, acquisitionErr(KindFlavor, err, "create flavor (%d MB)", ram)
	}
	m.infof("created flavor %s (%d MB)", created.ID, ram)
	tr := m.track(&TrackedResource{Kind: KindFlavor, ID: created.ID, Name: created.Name})
	return created.ID, tr, nil
}

// discoverOrCreateNetwork reuses an existing active non-external network,
// or provisions a network, subnet and router and wires the router to the
// subnet. The network group is tracked as soon as the network exists, so a
// partial failure still leaves every created piece reachable by cleanup.
// The option value is the network name.
func (m *Manager) discoverOrCreateNetwork(ctx context.Context) (string, *TrackedResource, error) {
	networks, err := m.sess.Networks.ListNetworks(ctx)
	if err != nil {
		return "", nil, acquisitionErr(KindNetwork, err, "list networks")
	}
	for _, existing := range networks {
		if !existing.External && strings.EqualFold(existing.Status, "active") {
			m.debugf("discovered network %s (%s)", existing.Name, existing.ID)
			return existing.Name, nil, nil
		}
	}

	name := m.resourceName("net")

	network, err := m.sess.Networks.CreateNetwork(ctx, name)
	if err != nil {
		return "", nil, acquisitionErr(KindNetwork, err, "create network")
	}
	tr := m.track(&TrackedResource{
		Kind: KindNetwork,
		ID:   network.ID,
		Name: network.Name,
		Net:  &NetworkGroup{NetworkID: network.ID},
	})

	subnet, err := m.sess.Networks.CreateSubnet(ctx, network.ID, m.cfg.Network.CIDR)
	if err != nil {
		return "", tr, acquisitionErr(KindNetwork, err, "create subnet")
	}
	tr.Net.SubnetIDs = append(tr.Net.SubnetIDs, subnet.ID)

	router, err := m.sess.Networks.CreateRouter(ctx, name)
	if err != nil {
		return "", tr, acquisitionErr(KindNetwork, err, "create router")
	}
	tr.Net.RouterID = router.ID

	if err := m.sess.Networks.AttachRouter(ctx, router.ID, subnet.ID); err != nil {
		return "", tr, acquisitionErr(KindNetwork, err, "attach router to subnet")
	}

	m.infof("created network %s (%s)", network.Name, network.ID)
	return network.Name, tr, nil
}

// resourceName builds a unique name for a provisioned resource.
func (m *Manager) resourceName(kind string) string {
	return fmt.Sprintf("cloudbench-%s-%s", kind, uuid.NewString()[:8])
}

func (m *Manager) debugf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Debugf(format, args...)
	}
}

func (m *Manager) infof(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Infof(format, args...)
	}
}

func (m *Manager) warnf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Warnf(format, args...)
	}
}
