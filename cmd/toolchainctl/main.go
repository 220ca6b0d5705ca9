package main

import "github.com/spacehunters/contracts/cmd/toolchainctl/cmd"

func main() {
	cmd.Execute()
}
