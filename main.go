package main

import "github.com/nextlevelbuilder/teamclaw/cmd"

func main() {
	cmd.Execute()
}
