package main

import "github.com/IliaW/autocomplete-crawler/cmd"

func main() {
	cmd.Execute()
}
