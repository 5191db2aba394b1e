package main

import "github.com/MrSnakeDoc/marks/internal/cli"

func main() {
	cli.Execute()
}
