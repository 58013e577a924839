// Command textctl runs the Wordsmith text capabilities from a terminal and
// manages the local usage ledger and API keys.
//
// Settings come from flags, TEXTCTL_* environment variables and an optional
// config file (--config, YAML, TOML or JSON), in that order of precedence.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
