package main

import "github.com/encodeous/gradient/cmd"

func main() {
	cmd.Execute()
}
