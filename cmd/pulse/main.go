package main

import "github.com/SammyTourani/Pulse-sub001/internal/cli"

func main() {
	cli.Execute()
}
