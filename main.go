package main

import "github.com/sweeplab/invitesweep/cmd"

func main() {
	cmd.Execute()
}
