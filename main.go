package main

import "github.com/khanhnv2901/seca-audit/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
