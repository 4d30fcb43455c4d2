// molprop is the command-line entry point for local, single-user use:
// analyses run in-process and pipeline runs live on the filesystem.
package main

import "github.com/molprop/platform/internal/interfaces/cli"

func main() {
	cli.Execute()
}
