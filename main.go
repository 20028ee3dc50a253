package main

import "envdiff/cmd"

func main() {
	cmd.Execute()
}
