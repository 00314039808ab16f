package main

import "dailyjournal/cmd"

func main() {
	cmd.Execute()
}
