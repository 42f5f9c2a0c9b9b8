package main

import "github.com/nijaru/yt-tutor/cli"

func main() {
	cli.Execute()
}
