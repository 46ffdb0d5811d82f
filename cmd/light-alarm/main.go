package main

import "github.com/oshokin/light-alarm/cmd/light-alarm/cmd"

func main() {
	cmd.Execute()
}
