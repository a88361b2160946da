package main

import "github.com/nextlevelbuilder/drost/cmd/drost/commands"

func main() {
	commands.Execute()
}
