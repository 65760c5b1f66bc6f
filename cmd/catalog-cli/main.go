package main

import "catalogdesk-backend/cmd/catalog-cli/cmd"

func main() {
	cmd.Execute()
}
