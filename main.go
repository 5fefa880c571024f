package main

import "github.com/agentic-research/descend/cmd"

func main() {
	cmd.Execute()
}
