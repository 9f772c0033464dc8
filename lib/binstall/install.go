// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package binstall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/graphwright/graphwright/lib/binhash"
)

// memoSize bounds the number of remembered tool/version paths.
const memoSize = 64

// Options configures an Installer.
type Options struct {
	// CacheDir holds installed binaries. Defaults to
	// $XDG_CACHE_HOME/graphwright/bin (os.UserCacheDir).
	CacheDir string

	Fetcher Fetcher
	Logger  *slog.Logger
}

// Installer resolves tool binaries, downloading them on first use.
// Safe for concurrent use; concurrent installs are serialized.
type Installer struct {
	cacheDir string
	fetcher  Fetcher
	logger   *slog.Logger

	memo *lru.Cache[string, string]

	// installMu serializes downloads so two callers never fetch the
	// same archive at once.
	installMu sync.Mutex
}

// New returns an Installer.
func New(options Options) (*Installer, error) {
	if options.CacheDir == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locating cache directory: %w", err)
		}
		options.CacheDir = filepath.Join(userCache, "graphwright", "bin")
	}
	if options.Fetcher == nil {
		options.Fetcher = &HTTPFetcher{}
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	memo, err := lru.New[string, string](memoSize)
	if err != nil {
		return nil, fmt.Errorf("creating install memo: %w", err)
	}
	return &Installer{
		cacheDir: options.CacheDir,
		fetcher:  options.Fetcher,
		logger:   options.Logger,
		memo:     memo,
	}, nil
}

// Path returns where tool at version is installed, whether or not it
// exists yet.
func (i *Installer) Path(tool, version string) string {
	return filepath.Join(i.cacheDir, tool, version, tool)
}

// Install returns the path of an executable for tool at version,
// downloading it if the cache does not already have it.
func (i *Installer) Install(ctx context.Context, tool, version string) (string, error) {
	if err := validateComponent("tool", tool); err != nil {
		return "", err
	}
	if err := validateComponent("version", version); err != nil {
		return "", err
	}

	key := tool + "@" + version
	if cached, ok := i.memo.Get(key); ok {
		return cached, nil
	}

	i.installMu.Lock()
	defer i.installMu.Unlock()

	target := i.Path(tool, version)
	if err := CheckExecutable(target); err == nil {
		i.memo.Add(key, target)
		return target, nil
	}

	i.logger.Info("installing binary", "tool", tool, "version", version, "path", target)
	if err := i.download(ctx, tool, version, target); err != nil {
		return "", fmt.Errorf("installing %s %s: %w", tool, version, err)
	}
	i.memo.Add(key, target)
	return target, nil
}

func (i *Installer) download(ctx context.Context, tool, version, target string) error {
	directory := filepath.Dir(target)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", directory, err)
	}

	archive, err := i.fetcher.Fetch(ctx, tool, version)
	if err != nil {
		return err
	}
	defer archive.Body.Close()

	// Spool the archive to disk so it can be verified before anything
	// is extracted from it.
	spool, err := os.CreateTemp(directory, ".download-*")
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	defer os.Remove(spool.Name())
	defer spool.Close()

	if _, err := io.Copy(spool, archive.Body); err != nil {
		return fmt.Errorf("downloading %s: %w", archive.Name, err)
	}

	if archive.Digest != nil {
		actual, err := binhash.HashFile(spool.Name())
		if err != nil {
			return err
		}
		if actual != *archive.Digest {
			return fmt.Errorf("digest mismatch for %s: expected %s, got %s", archive.Name, archive.Digest, actual)
		}
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding %s: %w", archive.Name, err)
	}

	staged, err := os.CreateTemp(directory, ".staged-*")
	if err != nil {
		return fmt.Errorf("creating staging file: %w", err)
	}
	stagedPath := staged.Name()
	defer os.Remove(stagedPath)

	format := DetectFormat(archive.Name)
	if err := extract(format, spool, tool, staged); err != nil {
		staged.Close()
		return err
	}
	if err := staged.Chmod(0o755); err != nil {
		staged.Close()
		return fmt.Errorf("marking %s executable: %w", tool, err)
	}
	if err := staged.Sync(); err != nil {
		staged.Close()
		return fmt.Errorf("syncing %s: %w", tool, err)
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tool, err)
	}
	if err := os.Rename(stagedPath, target); err != nil {
		return fmt.Errorf("moving %s into place: %w", tool, err)
	}

	i.logger.Info("installed binary", "tool", tool, "version", version, "format", format.String())
	return nil
}

// CheckExecutable reports whether path is an executable regular file.
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return &fs.PathError{Op: "exec", Path: path, Err: fs.ErrPermission}
	}
	return nil
}

func validateComponent(kind, value string) error {
	if value == "" {
		return fmt.Errorf("empty %s", kind)
	}
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
		return errors.New(kind + " " + value + " is not a valid path component")
	}
	return nil
}
