package main

import "github.com/felixgeelhaar/pacewatch/cmd/pacewatch/cli"

func main() {
	cli.Execute()
}
