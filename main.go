package main

import cmd "savingsplanner/cmd/cli"

func main() {
	cmd.Execute()
}
