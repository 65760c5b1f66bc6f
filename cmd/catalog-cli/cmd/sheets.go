package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"catalogdesk-backend/cmd/catalog-cli/utils"
	"catalogdesk-backend/lib/oauth"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	sheetsCmd.AddCommand(sheetsLoginCmd)
	sheetsCmd.AddCommand(sheetsTokenCmd)
	sheetsCmd.AddCommand(sheetsHistoryCmd)
	rootCmd.AddCommand(sheetsCmd)
}

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Manages the spreadsheet export authorization and history.",
}

var sheetsLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorizes spreadsheet exports through the oauth consent page.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client, err := openSheets(ctx)
		if err != nil {
			log.Fatal(err)
		}

		verifier, err := oauth.GenerateCodeVerifier()
		if err != nil {
			log.Fatal(err)
		}
		loginUrl, err := client.Tokens().LoginUrl(ctx, verifier)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("Open the following url, then paste the code it redirects with:")
		fmt.Println(loginUrl)
		fmt.Print("code: ")
		code, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			log.Fatal(err)
		}

		token, err := client.Tokens().Exchange(ctx, strings.TrimSpace(code), verifier)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("authorized, the access token expires in %s\n", time.Duration(token.ExpiresIn)*time.Second)
	},
}

var sheetsTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Prints a valid access token, refreshing it when needed.",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := openSheets(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}
		token, err := client.Tokens().Token(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(token)
	},
}

var sheetsHistoryCmd = &cobra.Command{
	Use:   "history <dataset>",
	Short: "Lists the rows of a dataset that were exported.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := openSheets(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}
		history, err := client.Journal().History(cmd.Context(), args[0])
		if err != nil {
			log.Fatal(err)
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"Time", "Url", "Spreadsheet", "Tab"})
		for _, rec := range history {
			t.AppendRow(table.Row{rec.Time.Format(time.DateTime), rec.Url, rec.Spreadsheet, rec.Tab})
		}
		t.Render()
	},
}
