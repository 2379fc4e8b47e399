// Copyright 2016 Aleksandr Demakin. All rights reserved.

// shmlock is a command line tool to create, inspect and lock shared memory blocks.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
