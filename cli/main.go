package main

import "github.com/Ch4lkP0wd3r/CalcPro/cli/cmd"

func main() {
	cmd.Execute()
}
