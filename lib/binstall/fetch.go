// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package binstall

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"runtime"
	"strings"

	"github.com/graphwright/graphwright/lib/binhash"
	"github.com/graphwright/graphwright/lib/netutil"
)

// DefaultURLTemplate is where release archives are downloaded from
// unless overridden. See [HTTPFetcher.URLTemplate] for placeholders.
const DefaultURLTemplate = "https://downloads.graphwright.dev/{tool}/{version}/{tool}-{version}-{os}-{arch}.tar.gz"

// Archive is a release archive being downloaded.
type Archive struct {
	// Name is the archive file name; its suffix selects the format.
	Name string

	Body io.ReadCloser

	// Digest, when non-nil, is the expected BLAKE3 digest of Body.
	Digest *binhash.Digest
}

// Fetcher obtains release archives.
type Fetcher interface {
	Fetch(ctx context.Context, tool, version string) (*Archive, error)
}

// HTTPFetcher downloads archives from a URL template.
type HTTPFetcher struct {
	// URLTemplate may contain {tool}, {version}, {os} and {arch}.
	URLTemplate string

	// DigestSuffix, if set, is appended to the archive URL to fetch a
	// hex BLAKE3 digest (for example ".b3"). A missing digest file is
	// an error.
	DigestSuffix string

	Client *http.Client
}

// URL expands the template for tool and version on this platform.
func (f *HTTPFetcher) URL(tool, version string) string {
	template := f.URLTemplate
	if template == "" {
		template = DefaultURLTemplate
	}
	return strings.NewReplacer(
		"{tool}", tool,
		"{version}", version,
		"{os}", runtime.GOOS,
		"{arch}", runtime.GOARCH,
	).Replace(template)
}

// Fetch starts downloading the archive. The caller closes Body.
func (f *HTTPFetcher) Fetch(ctx context.Context, tool, version string) (*Archive, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	url := f.URL(tool, version)

	var digest *binhash.Digest
	if f.DigestSuffix != "" {
		parsed, err := f.fetchDigest(ctx, client, url+f.DigestSuffix)
		if err != nil {
			return nil, err
		}
		digest = &parsed
	}

	response, err := get(ctx, client, url)
	if err != nil {
		return nil, err
	}
	return &Archive{Name: path.Base(response.Request.URL.Path), Body: response.Body, Digest: digest}, nil
}

func (f *HTTPFetcher) fetchDigest(ctx context.Context, client *http.Client, url string) (binhash.Digest, error) {
	response, err := get(ctx, client, url)
	if err != nil {
		return binhash.Digest{}, err
	}
	defer response.Body.Close()
	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return binhash.Digest{}, fmt.Errorf("reading digest from %s: %w", url, err)
	}
	// Accept "<hex>" or "<hex>  <filename>".
	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return binhash.Digest{}, fmt.Errorf("digest file %s is empty", url)
	}
	return binhash.ParseDigest(fields[0])
}

func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	if response.StatusCode != http.StatusOK {
		defer response.Body.Close()
		return nil, fmt.Errorf("downloading %s: HTTP %d: %s", url, response.StatusCode, netutil.ErrorBody(response.Body))
	}
	return response, nil
}
