package main

import "github.com/xaenox/thread-analytics/internal/command"

func main() {
	command.Execute()
}
