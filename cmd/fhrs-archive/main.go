package main

import (
	"fhrs-archive/cmd/fhrs-archive/commands"
	"fhrs-archive/lib/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext()
	defer stop()
	commands.ExecuteContext(ctx)
}
