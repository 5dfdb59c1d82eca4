// cmclient is the command-line interface for SAP Change Management. CI
// pipelines use it to check change status, manage transports and attach
// build artifacts to transports.
//
// Usage:
//
//	cmclient -e <service-url> -u <user> -p - is-change-in-development -c <changeId>
//	cmclient get-change-transports -c <changeId> [--modifiable-only]
//	cmclient create-transport -c <changeId> [--description <d> --owner <o>]
//	cmclient release-transport -c <changeId> -t <transportId>
//	cmclient upload-file-to-transport -t <transportId> -a <applicationId> <file>
package main

import (
	"os"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
