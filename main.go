package main

import "gapsync/internal/cli"

func main() {
	cli.Execute()
}
