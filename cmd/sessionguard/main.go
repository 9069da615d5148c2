package main

import "github.com/TanmoySin/sessionguard/cmd/sessionguard/cmd"

func main() {
	cmd.Execute()
}
