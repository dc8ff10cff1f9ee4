package main

import "github.com/devbush/yt2text/internal/adapters/cli"

func main() {
	cli.Execute()
}
