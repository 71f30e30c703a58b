package main

import "github.com/oshokin/shutdown-timer/cmd/timer-settingsd/cmd"

func main() {
	cmd.Execute()
}
