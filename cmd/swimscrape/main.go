package main

import (
	"context"

	"github.com/swimdata/go-scrape-swim/cmd/swimscrape/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
