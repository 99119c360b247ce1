package main

import "github.com/Daskott/famtree/cmd"

func main() {
	cmd.Execute()
}
