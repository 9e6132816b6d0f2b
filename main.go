package main

import "github.com/joy095/staybook/cmd"

func main() {
	cmd.Execute()
}
