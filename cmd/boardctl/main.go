package main

import "github.com/JonMunkholm/clueboard/cmd/boardctl/cmd"

func main() {
	cmd.Execute()
}
