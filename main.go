package main

import "github.com/metal-toolbox/bootline/cmd"

func main() {
	cmd.Execute()
}
