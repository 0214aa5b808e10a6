package main

import "homelibrary/cmd/cli/command"

func main() {
	command.Execute()
}
