// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

/*
Package supervisor runs the long-lived Recipewise services under a suture v4
supervisor tree.

	RootSupervisor ("recipewise")
	├── DataSupervisor ("data-layer")
	│   └── GCService (badger value log GC, when DB_GC_INTERVAL > 0)
	├── ComputeSupervisor ("compute-layer")
	│   └── MatrixService (periodic rating matrix refresh and snapshots)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A service that returns an error or panics is restarted by its layer's
supervisor with backoff. A matrix rebuild that keeps failing does not take
the API down; requests keep being served from the last good snapshot.

Supervisor events (restarts, backoff, stop timeouts) go through sutureslog
into the zerolog stream via logging.NewSlogHandler.

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddComputeService(services.NewMatrixService(builder, engine, store, cfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 15*time.Second))
	err = tree.Serve(ctx)
*/
package supervisor
