package lifecycle

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// imageCachePath is the deterministic local cache location for the guest
// image, scoped by deployment so concurrent deployments never collide.
func (m *Manager) imageCachePath() string {
	return filepath.Join(m.cfg.DataDir, m.deployment+"-"+m.cfg.Image.Name)
}

// acquireImageFile obtains the scenario image, trying three strategies in
// order, each exactly once per setup run:
//  1. local cache file: reuse without any network access
//  2. platform catalog: a matching image already on the platform is used
//     by name, without downloading its bytes
//  3. download from the configured URL into the cache path
func (m *Manager) acquireImageFile(ctx context.Context) (string, *TrackedResource, error) {
	path := m.imageCachePath()
	if _, err := os.Stat(path); err == nil {
		m.debugf("image cache hit: %s", path)
		return path, nil, nil
	}

	img, err := m.discoverImage(ctx)
	if err != nil {
		m.warnf("image catalog query failed, falling back to download: %v", err)
	} else if img != nil {
		m.debugf("using catalog image %s", img.Name)
		return img.Name, nil, nil
	}

	if err := m.downloadImage(ctx, path); err != nil {
		return "", nil, err
	}
	return path, nil, nil
}

// downloadImage streams the configured URL into path. The bytes land in a
// temp file first; a failed or truncated download never leaves a readable
// file at the cache path.
func (m *Manager) downloadImage(ctx context.Context, path string) error {
	m.infof("downloading image from %s", m.cfg.Image.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.Image.URL, nil)
	if err != nil {
		return acquisitionErr(KindImage, err, "build download request")
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return acquisitionErr(KindImage, err, "download image from %s", m.cfg.Image.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return acquisitionErr(KindImage, nil, "download image from %s: status %d",
			m.cfg.Image.URL, resp.StatusCode)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return acquisitionErr(KindImage, err, "create image dir")
	}
	tmp, err := os.CreateTemp(dir, ".img-*")
	if err != nil {
		return acquisitionErr(KindImage, err, "create temp image file")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return acquisitionErr(KindImage, err, "stream image body")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return acquisitionErr(KindImage, err, "close temp image file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return acquisitionErr(KindImage, err, "move image into cache %s", path)
	}
	return nil
}
