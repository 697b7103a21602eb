package main

import (
	"fmt"
	"os"

	"github.com/Sam36502/disekt/cmd/cmd"
	"github.com/Sam36502/disekt/internal/env"
)

func main() {
	PrintLogo()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func PrintLogo() {
	fmt.Println("     _ _          _    _   ")
	fmt.Println("  __| (_)___  ___| | _| |_ ")
	fmt.Println(" / _` | / __|/ _ \\ |/ / __|")
	fmt.Println("| (_| | \\__ \\  __/   <| |_ ")
	fmt.Println(" \\__,_|_|___/\\___|_|\\_\\\\__|")
	fmt.Println()
	fmt.Println("1541 disk image analysis tool")
	fmt.Println()
	fmt.Printf("Version:   %s\n", env.Version)
	fmt.Printf("Commit:    %s\n", env.CommitHash)
	fmt.Printf("Build Time: %s\n", env.BuildTime)
	fmt.Println(" ")
}
