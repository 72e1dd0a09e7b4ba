package main

import cmd "github.com/metricspider/metricspider/internal/cli"

func main() {
	cmd.Execute()
}
