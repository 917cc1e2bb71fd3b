package commands

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"nsdotgo/lib/scrapers/nationstates/api"
	"nsdotgo/lib/util/serviceutil"

	"github.com/antchfx/xmlquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	queryPassword string
	queryParams   []string
)

func parseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q is not key=value", pair)
		}
		params.Add(key, value)
	}
	return params, nil
}

// elementRows flattens the reply's top level elements into rows, nested
// elements are shown as their inner text.
func elementRows(doc *xmlquery.Node) []table.Row {
	root := xmlquery.FindOne(doc, "/*")
	if root == nil {
		return nil
	}
	rows := []table.Row{}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		rows = append(rows, table.Row{child.Data, strings.TrimSpace(child.InnerText())})
	}
	return rows
}

var queryCmd = &cobra.Command{
	Use:   "query <nation|region|world|wa> [target] [shards...]",
	Short: "Query the data api and print the reply's shards.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		q := api.Query{Kind: api.Kind(strings.ToLower(args[0])), Password: queryPassword}
		rest := args[1:]
		if q.Kind != api.World && len(rest) > 0 {
			q.Target = rest[0]
			rest = rest[1:]
		}
		q.Shards = rest
		params, err := parseParams(queryParams)
		if err != nil {
			serviceutil.Fatal("invalid parameters", err)
		}
		if len(params) > 0 {
			q.Params = params
		}

		config, err := loadConfig()
		if errors.Is(err, errTemplateWritten) {
			fmt.Println(err)
			return
		}
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		session, err := openSession(ctx, config, noInput)
		if err != nil {
			serviceutil.Fatal("failed to start session", err)
		}

		res, err := api.NewClient(session).Query(ctx, q)
		if err != nil {
			serviceutil.Fatal("query failed", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Shard", "Value"})
		t.AppendRows(elementRows(res.Doc))
		t.Render()
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryPassword, "password", "p", "", "The nation's password, for private shards.")
	queryCmd.Flags().StringArrayVar(&queryParams, "param", nil, "Extra shard parameters as key=value, e.g. scale=all.")
	rootCmd.AddCommand(queryCmd)
}
