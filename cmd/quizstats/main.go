package main

import (
	"quizstats/cmd/quizstats/commands"
	"quizstats/internal/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
