package main

import "github.com/qzbx-cloud/avision/cmd"

func main() {
	cmd.Execute()
}
