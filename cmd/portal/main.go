package main

import "grievance/internal/cli"

func main() {
	cli.Execute()
}
