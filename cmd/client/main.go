package main

import (
	"prefectlog/cmd/client/cmd"
)

func main() {
	cmd.Execute()
}
