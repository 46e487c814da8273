package main

import "github.com/vibast-solutions/ms-go-hr-auth/cmd"

func main() {
	cmd.Execute()
}
