package main

import "github.com/notargets/gorom/cmd"

func main() {
	cmd.Execute()
}
