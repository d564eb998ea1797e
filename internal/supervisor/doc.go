// Stitchboard - Crochet Community Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stitchboard

/*
Package supervisor runs Stitchboard's long-lived services under a suture v4
tree:

	stitchboard
	├── maintenance-layer
	│   └── cache-janitor
	├── messaging-layer
	│   └── bus-consumer (when NOTIFY_BUS_ENABLED)
	└── api-layer
	    └── http-server

Crashed services restart with backoff. Each layer counts failures on its
own, so a flapping bus consumer does not take the health endpoints down.
Supervisor events are logged through sutureslog, bridged to zerolog by
logging.NewSlogLogger.

Shutdown is driven by context cancellation; services that miss the
shutdown timeout show up in UnstoppedServiceReport.
*/
package supervisor
