package main

import "github.com/sidhant-sriv/smart-renter/cmd"

func main() {
	cmd.Execute()
}
