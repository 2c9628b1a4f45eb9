package main

import "github.com/MeKo-Tech/woodgrain/internal/cmd"

func main() {
	cmd.Execute()
}
