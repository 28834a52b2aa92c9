package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/crud"
	"github.com/dennislaw/svd-console/internal/dashboard"
	"github.com/dennislaw/svd-console/internal/resources"
)

type cli struct {
	APIURL  string        `name:"api-url" env:"API_BASE_URL" default:"http://127.0.0.1:8000" help:"Base URL of the Dennislaw REST API."`
	Token   string        `env:"SVD_API_TOKEN" help:"Bearer token used for every call."`
	Output  string        `short:"o" enum:"table,csv,json,yaml" default:"table" help:"Output format (table, csv, json, yaml)."`
	Timeout time.Duration `default:"20s" help:"Per-request timeout."`

	List   listCmd   `cmd:"" help:"List one page of an entity."`
	Stats  statsCmd  `cmd:"" help:"Show entity statistics, or all of them."`
	Delete deleteCmd `cmd:"" help:"Delete one record."`
	Files  filesCmd  `cmd:"" help:"Browse the file repository."`
}

// env carries what every command needs once flags are parsed.
type env struct {
	ctx    context.Context
	api    *apiclient.Client
	token  string
	output string
	out    io.Writer
}

type listCmd struct {
	Entity string   `arg:"" help:"Entity key (users, cases, people, banks, insurance, companies, payments, settings)."`
	Page   int      `default:"1" help:"Page number."`
	Limit  int      `default:"10" help:"Records per page."`
	Search string   `help:"Free-text search."`
	Filter []string `help:"Filter as key=value; repeat for several."`
}

type statsCmd struct {
	Entity string `arg:"" optional:"" help:"Entity key; omit for every entity with statistics."`
}

type deleteCmd struct {
	Entity string `arg:"" help:"Entity key."`
	ID     string `arg:"" help:"Record identifier."`
	Yes    bool   `short:"y" help:"Confirm the deletion."`
}

type filesCmd struct {
	Ls filesLsCmd `cmd:"" name:"ls" help:"List a repository folder."`
}

type filesLsCmd struct {
	Path string `arg:"" optional:"" default:"/" help:"Folder to list."`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "svdctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var root cli
	parser, err := kong.New(&root,
		kong.Name("svdctl"),
		kong.Description("Operator tool for the Dennislaw SVD admin API."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	api, err := apiclient.New(apiclient.Config{BaseURL: root.APIURL, Timeout: root.Timeout})
	if err != nil {
		return err
	}
	if strings.TrimSpace(root.Token) == "" {
		return errors.New("an API token is required (--token or SVD_API_TOKEN)")
	}
	return kctx.Run(&env{ctx: ctx, api: api, token: root.Token, output: root.Output, out: stdout})
}

func lookup(entity string) (crud.Resource, error) {
	res, ok := resources.Lookup(entity)
	if !ok {
		keys := make([]string, 0, len(resources.All()))
		for _, r := range resources.All() {
			keys = append(keys, r.Key)
		}
		return crud.Resource{}, fmt.Errorf("unknown entity %q (want one of %s)", entity, strings.Join(keys, ", "))
	}
	return res, nil
}

func (c *listCmd) Run(e *env) error {
	res, err := lookup(c.Entity)
	if err != nil {
		return err
	}
	values := url.Values{}
	values.Set("page", strconv.Itoa(c.Page))
	values.Set("limit", strconv.Itoa(c.Limit))
	values.Set("search", c.Search)
	for _, raw := range c.Filter {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return fmt.Errorf("filter %q must be key=value", raw)
		}
		if _, declared := res.Filter(key); !declared {
			return fmt.Errorf("%s cannot be filtered by %q", res.Key, key)
		}
		values.Set(key, value)
	}
	state := crud.ParseListState(res, values, c.Limit)

	page, err := e.api.List(e.ctx, e.token, res.Key, state.ListQuery())
	if err != nil {
		return err
	}
	switch e.output {
	case "json", "yaml":
		return encode(e, map[string]any{
			"page":        page.Page,
			"limit":       page.Limit,
			"total":       page.Total,
			"total_pages": page.TotalPages,
			"items":       page.Items,
		})
	case "csv":
		return crud.WriteCSV(e.out, res, page.Items)
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	header := []string{"ID"}
	for _, col := range res.Columns {
		header = append(header, strings.ToUpper(col.Header()))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, rec := range page.Items {
		fmt.Fprintln(tw, strings.Join(append([]string{rec.ID()}, res.Cells(rec)...), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.out, "page %d of %d, %s records\n", page.Page, page.TotalPages, humanize.Comma(int64(page.Total)))
	return err
}

func (c *statsCmd) Run(e *env) error {
	if c.Entity != "" {
		res, err := lookup(c.Entity)
		if err != nil {
			return err
		}
		stats, err := e.api.Stats(e.ctx, e.token, res.Key)
		if err != nil {
			return err
		}
		if e.output == "json" || e.output == "yaml" {
			return encode(e, stats)
		}
		tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		for _, card := range crud.StatCards(stats) {
			fmt.Fprintf(tw, "%s\t%s\n", card.Label, card.Value)
		}
		return tw.Flush()
	}

	overview := dashboard.NewService(nil, e.api, resources.All()).Overview(e.ctx, e.token)
	if overview.Unauthorized() {
		return errors.New("the API rejected the token")
	}
	if e.output == "json" || e.output == "yaml" {
		return encode(e, overview)
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tTOTAL\tDETAIL")
	for _, s := range overview.Summaries {
		total := "-"
		if s.HasTotal {
			total = humanize.Comma(int64(s.Total))
		}
		detail := s.Error
		if !s.Failed() {
			parts := make([]string, 0, len(s.Cards))
			for _, card := range s.Cards {
				parts = append(parts, card.Label+"="+card.Value)
			}
			detail = strings.Join(parts, ", ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Entity, total, detail)
	}
	return tw.Flush()
}

func (c *deleteCmd) Run(e *env) error {
	res, err := lookup(c.Entity)
	if err != nil {
		return err
	}
	if !c.Yes {
		return fmt.Errorf("refusing to delete %s %s without --yes", res.SingularTitle(), c.ID)
	}
	if err := e.api.Delete(e.ctx, e.token, res.Key, c.ID); err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.out, "%s %s deleted\n", res.SingularTitle(), c.ID)
	return err
}

func (c *filesLsCmd) Run(e *env) error {
	listing, err := e.api.ListFolder(e.ctx, e.token, c.Path)
	if err != nil {
		return err
	}
	if e.output == "json" || e.output == "yaml" {
		return encode(e, listing)
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSIZE\tMODIFIED\tNAME")
	for _, entry := range listing.Entries {
		kind, size, modified := "file", humanize.Bytes(uint64(max(entry.Size, 0))), "-"
		if entry.IsDir {
			kind, size = "dir", "-"
		}
		if !entry.ModifiedAt.IsZero() {
			modified = entry.ModifiedAt.Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", kind, size, modified, entry.Name)
	}
	return tw.Flush()
}

func encode(e *env, v any) error {
	if e.output == "yaml" {
		enc := yaml.NewEncoder(e.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
