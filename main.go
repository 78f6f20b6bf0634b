package main

import "github.com/Mohsinsiddi/w3gas/cmd"

func main() {
	cmd.Execute()
}
