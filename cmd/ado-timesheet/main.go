package main

import (
	"fmt"
	"os"

	"github.com/akhanalpacksize/ADO-Time-Sheet/cmd/ado-timesheet/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
