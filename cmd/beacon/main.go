package main

import "github.com/ferrisk/beacon/cmd/beacon/cmd"

func main() {
	cmd.Execute()
}
