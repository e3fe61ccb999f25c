package main

import "github.com/brk3/habitstreak/cmd"

func main() {
	cmd.Execute()
}
