package main

import (
	"os"

	"github.com/tanpawarit/Chative-Multi-Route-Dialogue/cmd"
	_ "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/logger/autoload"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
