package main

import "github.com/gaurav-prasanna/mdbatch/cmd"

func main() {
	cmd.Execute()
}
