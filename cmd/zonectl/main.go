package main

import "github.com/jwalitptl/geo-pricing/internal/cli"

func main() {
	cli.Execute()
}
