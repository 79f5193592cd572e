package main

import "github.com/noahxzhu/chatcard/internal/cli"

func main() {
	cli.Execute()
}
