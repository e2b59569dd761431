// Package main is the entry point of the tracelift CLI.
package main

import "github.com/mouse-blink/tracelift/cmd"

func main() {
	cmd.Execute()
}
