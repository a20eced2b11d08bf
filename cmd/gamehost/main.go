package main

import "github.com/mcoot/gamehost/internal/cli"

func main() {
	cli.Execute()
}
