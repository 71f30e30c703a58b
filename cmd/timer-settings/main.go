package main

import "github.com/oshokin/shutdown-timer/cmd/timer-settings/cmd"

func main() {
	cmd.Execute()
}
