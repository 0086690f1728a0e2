// Package repo reads published archive indices, either from a local
// archive root or over HTTP from a mirror.
package repo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/xerrors"
	"pault.ag/go/debian/control"
)

type ErrNotFound struct {
	url *url.URL
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%v: HTTP status 404", e.url)
}

type gzipReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func (r *gzipReader) Read(p []byte) (n int, err error) {
	return r.zr.Read(p)
}

func (r *gzipReader) Close() error {
	if err := r.zr.Close(); err != nil {
		return err
	}
	return r.body.Close()
}

var httpClient = &http.Client{Transport: &http.Transport{
	MaxIdleConnsPerHost: 10,
	DisableCompression:  true,
}}

func remote(base string) bool {
	return strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://")
}

// Reader opens fn relative to base, which is either a directory or an
// http(s) URL.
func Reader(ctx context.Context, base, fn string) (io.ReadCloser, error) {
	if !remote(base) {
		return os.Open(filepath.Join(base, fn))
	}
	req, err := http.NewRequest("GET", strings.TrimSuffix(base, "/")+"/"+strings.TrimPrefix(fn, "/"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if got, want := resp.StatusCode, http.StatusOK; got != want {
		resp.Body.Close()
		if got == http.StatusNotFound {
			return nil, &ErrNotFound{url: req.URL}
		}
		return nil, xerrors.Errorf("%s: HTTP status %v", req.URL, resp.Status)
	}
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		rd, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		return &gzipReader{body: resp.Body, zr: rd}, nil
	}
	return resp.Body, nil
}

// Package is one stanza of a Packages index.
type Package struct {
	control.Paragraph

	Package      string
	Source       string
	Version      string
	Architecture string
	Filename     string
	Size         int64
	SHA256       string
}

// Packages reads and decodes dists/<suite>/<component>/binary-<arch>/Packages.gz.
func Packages(ctx context.Context, base, suite, component, arch string) ([]Package, error) {
	fn := fmt.Sprintf("dists/%s/%s/binary-%s/Packages.gz", suite, component, arch)
	rc, err := Reader(ctx, base, fn)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	zr, err := gzip.NewReader(rc)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", fn, err)
	}
	defer zr.Close()
	dec, err := control.NewDecoder(zr, nil)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", fn, err)
	}
	var pkgs []Package
	for {
		var p Package
		if err := dec.Decode(&p); err != nil {
			if err == io.EOF {
				break
			}
			return nil, xerrors.Errorf("%s: %w", fn, err)
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, nil
}
