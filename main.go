package main

import "github.com/graytonio/slack-mcp/cmd"

func main() {
	cmd.Execute()
}
