package main

import "github.com/whatsmeow-ffi/build-tools/cmd"

func main() {
	cmd.Execute()
}
