// Command ratewright drives the TUI and headless load-generator modes;
// all flag parsing and mode dispatch lives in internal/config.
package main

import "ratewright/internal/config"

func main() {
	config.Execute()
}
