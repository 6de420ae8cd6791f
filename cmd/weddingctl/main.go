package main

import "wedding-planner/cmd/weddingctl/commands"

func main() {
	commands.Execute()
}
