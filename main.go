package main

import "github.com/user/nsenso/cmd"

func main() {
	cmd.Execute()
}
