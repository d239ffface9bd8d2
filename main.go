package main

import "github.com/tabmux/tabmux/cmd"

func main() {
	cmd.Execute()
}
