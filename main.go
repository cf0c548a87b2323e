package main

import "github.com/ihavelanded/ms-go-esim/cmd"

func main() {
	cmd.Execute()
}
