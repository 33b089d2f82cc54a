package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nzambello/plone-map/internal/query"
)

var (
	queryData      string
	queryContinent string
	queryCountry   string
	queryCompany   string
	queryText      string
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Filter the dataset and print members with facets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Server.DataPath = firstNonEmpty(queryData, cfg.Server.DataPath)
		if err := cfg.Validate("query"); err != nil {
			return err
		}

		members, err := loadMembers(cfg.Server.DataPath)
		if err != nil {
			return err
		}

		p := queryParams(cmd)
		res := query.Run(members, p)
		if queryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(cmd.OutOrStdout(), p, res)
		return nil
	},
}

// queryParams maps the flags the user set to query parameters. Unset flags
// stay absent.
func queryParams(cmd *cobra.Command) query.Params {
	var p query.Params
	set := func(flag string, v string) *string {
		if !cmd.Flags().Changed(flag) {
			return nil
		}
		return &v
	}
	p.Continent = set("continent", queryContinent)
	p.Country = set("country", queryCountry)
	p.Company = set("company", queryCompany)
	p.SearchableText = set("text", queryText)
	return p
}

func printResult(w io.Writer, p query.Params, res query.Result) {
	if filters := p.Values().Encode(); filters != "" {
		fmt.Fprintf(w, "filters: %s\n", filters)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Name", "Company", "Venue", "Country", "Continent"})
	for _, m := range res.Members {
		t.AppendRow(table.Row{m.ID, m.Name, m.Company, m.VenueName(), m.Country(), m.Continent()})
	}
	t.Render()

	fmt.Fprintf(w, "showing %d of %d members\n", len(res.Members), res.Total)

	fmt.Fprintf(w, "continents: %s\n", strings.Join(res.Continents, ", "))
	fmt.Fprintf(w, "countries: %s\n", strings.Join(res.Countries, ", "))
	fmt.Fprintf(w, "companies: %s\n", strings.Join(res.Companies, ", "))
}

func init() {
	queryCmd.Flags().StringVar(&queryData, "data", "", "dataset to query (default from config)")
	queryCmd.Flags().StringVar(&queryContinent, "continent", "", "exact continent")
	queryCmd.Flags().StringVar(&queryCountry, "country", "", "exact country")
	queryCmd.Flags().StringVar(&queryCompany, "company", "", "exact company")
	queryCmd.Flags().StringVar(&queryText, "text", "", "free-text search over name, company and venue")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(queryCmd)
}
