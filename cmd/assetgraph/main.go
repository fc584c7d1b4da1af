package main

import "github.com/agentpkg/assetgraph/pkg/cmd"

func main() {
	cmd.Execute()
}
