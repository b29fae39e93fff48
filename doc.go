/*
Package grapher edits node-graph documents shared by several artists on a
network drive.

A document is an ordered tree of typed nodes, a table of variables and a set
of plug-to-plug connections, stored as a gp_<name>.py file. Concurrent editing
follows a cooperative single-writer protocol: the first user to open a document
writes a gpLock_<name>.py sidecar and everyone else gets a read-only session.

# Key Features

  - Flat name uniqueness: inserting a colliding name yields name_N.
  - Atomic saves: a crash never leaves a truncated document behind.
  - Lock protocol: exclusive creation, holder-only release, explicit break.
  - Resumable loops: iteration markers make re-runs skip completed values.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/grapher"
		"github.com/aretw0/grapher/pkg/domain"
	)

	func main() {
		ctx := context.Background()
		editor := grapher.New(domain.Identity{User: "alice", Station: "ws-01"})

		session, err := editor.Open(ctx, "/show/seq/gp_Shot010.py")
		if err != nil {
			log.Fatal(err)
		}
		defer session.Close(ctx)

		if session.ReadOnly() {
			log.Printf("locked by %s", session.Holder().User)
			return
		}
		// ... mutate session.Document ...
		if err := session.Save(ctx); err != nil {
			log.Fatal(err)
		}
	}

# Architecture

The root package wires pkg/ports implementations together. Storage and locking
live in pkg/adapters/file (sidecar files) and pkg/adapters/redis (shared Redis),
the document model in pkg/graph, the wire format in pkg/codec and loop execution
in pkg/iteration.
*/
package grapher
