package main

import "DHX/cmd"

func main() {
	cmd.Execute()
}
