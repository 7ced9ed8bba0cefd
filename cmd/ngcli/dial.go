package main

import (
	"fmt"
	"net"
	"os"

	"github.com/flynn/noise"

	"github.com/nextgraph-core/ng/pkg/netconn"
)

// dial opens one link to the configured broker and performs the
// client-side Noise XK handshake, returning a Conn ready for
// Request. The caller is responsible for closing it.
func dial(variant netconn.Variant) (*netconn.Conn, error) {
	if responderKeyPath == "" {
		return nil, fmt.Errorf("ngcli: --broker-key is required")
	}
	responderPublic, err := os.ReadFile(responderKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ngcli: read broker key: %w", err)
	}

	var staticKeypair noise.DHKey
	if identityKeyPath != "" {
		data, err := os.ReadFile(identityKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ngcli: read identity key: %w", err)
		}
		staticKeypair, err = netconn.StaticKeypairFromPrivate(data)
		if err != nil {
			return nil, fmt.Errorf("ngcli: parse identity key: %w", err)
		}
	} else {
		staticKeypair, err = netconn.GenerateStaticKeypair()
		if err != nil {
			return nil, fmt.Errorf("ngcli: generate ephemeral identity: %w", err)
		}
	}

	rw, err := net.Dial("tcp", dialAddr)
	if err != nil {
		return nil, fmt.Errorf("ngcli: dial %s: %w", dialAddr, err)
	}

	conn, err := netconn.DialClient(rw, variant, staticKeypair, responderPublic, nil, nil)
	if err != nil {
		rw.Close()
		return nil, fmt.Errorf("ngcli: handshake: %w", err)
	}
	// ServeLoop is what reads frames off the wire and dispatches
	// replies to the actor table Request waits on; without it every
	// Request would block until its timeout. No inbound requests ever
	// arrive on a client-only link, so the nil Handler is never used.
	go conn.ServeLoop()
	return conn, nil
}
