package main

import "notion-lite/cmd"

func main() {
	cmd.Execute()
}
