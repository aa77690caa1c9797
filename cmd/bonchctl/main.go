package main

import (
	"bonchassist-backend/cmd/bonchctl/commands"
	"bonchassist-backend/lib/serviceutil"
)

func main() {
	commands.Execute(serviceutil.SignalContext())
}
