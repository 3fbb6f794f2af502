package main

import "github.com/dgallion1/corpusgest/cmd/corpusgest/cmd"

func main() {
	cmd.Execute()
}
