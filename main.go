package main

import "github.com/watchmonkey/stocktags/cmd"

func main() {
	cmd.Execute()
}
