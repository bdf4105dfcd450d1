package main

import (
	"github.com/luma/cmdmgr/cmd"
)

func main() {
	cmd.Execute()
}
