package main

import "vecbench/internal/cli"

func main() {
	cli.Execute()
}
