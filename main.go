package main

import (
	"github.com/akitasoftware/flowcore/cmd"
)

func main() {
	cmd.Execute()
}
