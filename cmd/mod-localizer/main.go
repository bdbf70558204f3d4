package main

import "mod-localizer/internal/cli"

func main() {
	cli.Execute()
}
