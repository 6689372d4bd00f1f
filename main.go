package main

import "sheet-reconciler/cmd"

func main() {
	cmd.Execute()
}
