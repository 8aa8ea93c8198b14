package main

import "lmbridge/cmd"

func main() {
	cmd.Execute()
}
