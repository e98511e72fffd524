package cmd

import (
	"fmt"
)

const banner = `
  ____
 |  _ \
 | |_) | ___  __ _  ___ ___  _ __
 |  _ < / _ \/ _` + "`" + ` |/ __/ _ \| '_ \
 | |_) |  __/ (_| | (_| (_) | | | |
 |____/ \___|\__,_|\___\___/|_| |_|

`

func printBanner() {
	fmt.Printf("\x1b[34m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Embedded Web Platform - Version %s\x1b[0m\n\n", Version)
}
