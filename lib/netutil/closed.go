// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// IsExpectedCloseError reports whether err is a normal connection
// termination: EOF, closed connection, broken pipe, or connection
// reset. A follower that hangs up before reading its response produces
// these on the leader side; they are not worth logging as errors.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno == unix.EPIPE || errno == unix.ECONNRESET
	}
	return false
}

// IsNoListener reports whether a dial error means nothing is listening
// at the address: the socket file is missing, or it exists but no
// process has it bound (a stale socket left by a crashed owner).
func IsNoListener(err error) bool {
	if err == nil {
		return false
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno == unix.ENOENT || errno == unix.ECONNREFUSED
	}
	return false
}

// IsAddressInUse reports whether a listen error means another socket
// is already bound at the address.
func IsAddressInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
