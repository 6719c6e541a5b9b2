package main

import "github.com/oshokin/smartlock/cmd/lockd/cmd"

func main() {
	cmd.Execute()
}
