package main

import "github.com/savannahq/pettycash/cmd"

func main() {
	cmd.Execute()
}
