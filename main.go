package main

import "stillfm/cmd"

func main() {
	cmd.Execute()
}
