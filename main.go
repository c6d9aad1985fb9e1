package main

import (
	"log"

	"github.com/example/todo-chat-demo/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		log.Fatalf("todo-chat: %v", err)
	}
}
