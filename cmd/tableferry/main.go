package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/dbsmedya/tableferry/cmd/tableferry/cmd"
)

func main() {
	cmd.Execute()
}
