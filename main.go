// Command oneclick-bridge hosts and drives the carrier one-click login bridge.
package main

import "oneclick_bridge/cmd"

func main() {
	cmd.Execute()
}
