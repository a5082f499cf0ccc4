// Command qecc schedules circuits onto a zoned ion-trap chain and estimates
// their reliability under quantum error correction.
package main

import (
	"fmt"
	"os"

	"github.com/WestGround/qecc-iontrap-chip/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
