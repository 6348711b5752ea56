package main

import "github.com/sadopc/portdesk/internal/cli"

func main() {
	cli.Execute()
}
