package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/abelbrown/quill/internal/api"
	"github.com/abelbrown/quill/internal/blog"
	"github.com/abelbrown/quill/internal/listing"
	"github.com/abelbrown/quill/internal/logging"
	"github.com/abelbrown/quill/internal/query"
)

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	page := fs.Int("page", 1, "Page number")
	limit := fs.Int("limit", query.PageSize, "Posts per page")
	sortBy := fs.String("sort", string(query.SortNew), "Order: new or old")
	author := fs.String("author", "", "Only posts by this user id")
	rawJSON := fs.Bool("json", false, "Print the page as JSON")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	client, err := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithTokenSource(api.StaticToken(cfg.Token)),
	)
	if err != nil {
		fatal("invalid API base URL: %v", err)
	}

	params := api.SearchParams{
		Text:   strings.TrimSpace(strings.Join(fs.Args(), " ")),
		Page:   *page,
		Limit:  *limit,
		Sort:   string(query.ParseSort(*sortBy)),
		Author: *author,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	t0 := time.Now()
	result, err := client.SearchPosts(ctx, params)
	if err != nil {
		logging.Error("search failed", "base", cfg.API.BaseURL, "error", err)
		fatal("search: %s", api.Message(err))
	}

	if *rawJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fatal("encode: %v", err)
		}
		return
	}
	printResults(os.Stdout, params, result, time.Since(t0))
}

// printResults writes a page of posts the way the listing shows them.
func printResults(w io.Writer, p api.SearchParams, result blog.PostPage, took time.Duration) {
	limit := p.Limit
	if limit <= 0 {
		limit = query.PageSize
	}
	pages := (result.Total + limit - 1) / limit
	st := listing.State{
		SearchQuery: p.Text,
		CurrentPage: max(result.Page, 1),
		TotalPages:  pages,
		Total:       result.Total,
		Posts:       result.Posts,
	}

	if info := listing.InfoLine(st); info != "" {
		fmt.Fprintln(w, info)
	}
	fmt.Fprintf(w, "Page %d of %d, sorted %s [%v]\n", st.CurrentPage, max(pages, 1),
		strings.ToLower(query.ParseSort(p.Sort).Label()), took.Round(time.Millisecond))
	fmt.Fprintln(w, strings.Repeat("-", 80))

	if len(result.Posts) == 0 {
		fmt.Fprintln(w, "No posts found")
		return
	}
	for i, post := range result.Posts {
		n := (st.CurrentPage-1)*limit + i + 1
		fmt.Fprintf(w, "%3d. %s\n", n, truncate(post.Title, 70))
		meta := []string{post.Author.DisplayName()}
		if !post.CreatedAt.IsZero() {
			meta = append(meta, humanize.Time(post.CreatedAt))
		}
		if post.Likes > 0 {
			meta = append(meta, humanize.Comma(int64(post.Likes))+" likes")
		}
		fmt.Fprintf(w, "     %s  id=%s\n", strings.Join(meta, " · "), post.ID)
	}
}
