package main

import "github.com/oshokin/smartlock/cmd/lockctl/cmd"

func main() {
	cmd.Execute()
}
