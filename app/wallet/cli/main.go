// This program talks to a node and manages the key a node uses to annotate
// mined payloads.
package main

import "github.com/ardanlabs/powchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
