package main

import "conformer-pipeline/cmd"

func main() {
	cmd.Execute()
}
