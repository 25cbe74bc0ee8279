package main

import "github.com/mvp-joe/workbench-context/internal/cli"

func main() {
	cli.Execute()
}
