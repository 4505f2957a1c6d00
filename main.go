package main

import (
	"artlens/cmd"
)

func main() {
	cmd.Execute()
}
