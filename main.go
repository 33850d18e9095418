package main

import "github.com/Digital-Shane/batch-mover/internal/cmd"

func main() {
	cmd.Execute()
}
