// Package main is the entry point for the playcall CLI, which trains and
// evaluates next-play-call predictors on American football play-by-play data.
package main

import "github.com/pable/go-playcall/cmd"

func main() {
	cmd.Execute()
}
