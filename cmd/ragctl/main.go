// Command ragctl administers a ragchat deployment in process: it reads the same
// configuration as the server and talks to the same index, registry and upload dir.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
