package main

import "github.com/wkalt/dynconn/cli/cmd"

func main() {
	cmd.Execute()
}
