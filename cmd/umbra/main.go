package main

import "github.com/mvp-joe/umbra/internal/cli"

func main() {
	cli.Execute()
}
