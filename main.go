package main

import "github.com/mselser95/perp-arb-monitor/cmd"

func main() {
	cmd.Execute()
}
