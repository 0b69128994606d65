package main

import "github.com/shouni/go-gazette-scraper/cmd"

func main() {
	cmd.Execute()
}
