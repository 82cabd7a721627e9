package main

import "github.com/pymesh/depbuild/cmd"

func main() {
	cmd.Execute()
}
