package main

import "github.com/etorres/rbackup/cmd"

func main() {
	cmd.Execute()
}
