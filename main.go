package main

import "github.com/adpilot/adpilot/cmd"

func main() {
	cmd.Execute()
}
