package main

import "github.com/tenantrx/recordsapi/cmd/recordsapi/cmd"

func main() {
	cmd.Execute()
}
