package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/files"
	"github.com/mommothazaz123/avrae-search-nn/internal/adapters/socket"
	"github.com/mommothazaz123/avrae-search-nn/internal/app"
	"github.com/mommothazaz123/avrae-search-nn/internal/domain/rank"
	"github.com/mommothazaz123/avrae-search-nn/internal/logger"
	"github.com/mommothazaz123/avrae-search-nn/internal/ports"
)

// compareLimit is how many candidates per strategy the interactive prompt
// shows.
const compareLimit = 5

var (
	searchStrategy    string
	searchLimit       int
	searchInteractive bool
	searchLocal       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Rank catalog names for a query",
	Long: "Ranks through the running daemon when there is one, otherwise loads the " +
		"catalog (and rank.model, if set) in process. -i opens a prompt that shows " +
		"every strategy side by side.",
	Example: "  nnsearch search fireb\n" +
		"  nnsearch search -s fuzzy -n 3 magic misile\n" +
		"  nnsearch search -i",
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchStrategy, "strategy", "s", "", "substring, fuzzy, learned or ensemble (default serve.strategy)")
	f.IntVarP(&searchLimit, "limit", "n", 10, "maximum candidates")
	f.BoolVarP(&searchInteractive, "interactive", "i", false, "interactive comparison prompt")
	f.BoolVar(&searchLocal, "local", false, "rank in process even if the daemon is running")
}

// ranker is the daemon client or an in-process service.
type ranker interface {
	Rank(query, strategy string, limit int) ([]rank.Candidate, string, error)
	Strategies() []string
}

type daemonRanker struct {
	client     *socket.Client
	strategies []string
}

func (d daemonRanker) Rank(query, strategy string, limit int) ([]rank.Candidate, string, error) {
	res, err := d.client.Rank(query, strategy, limit)
	if err != nil {
		return nil, strategy, err
	}
	return res.Candidates, res.Strategy, nil
}

func (d daemonRanker) Strategies() []string { return d.strategies }

func newRanker() (ranker, func(), error) {
	if !searchLocal {
		client := daemonClient()
		if client.Ping() {
			h, err := client.Health()
			if err != nil {
				return nil, nil, err
			}
			return daemonRanker{client: client, strategies: h.Strategies}, func() {}, nil
		}
	}

	var scorer ports.Scorer
	closeFn := func() {}
	if cfg.Rank.Model != "" {
		s, err := app.OpenScorer(cfg.Rank.Model, cfg.Rank.OnnxLibrary)
		if err != nil {
			return nil, nil, fmt.Errorf("open scorer: %w", err)
		}
		scorer = s
		closeFn = func() { s.Close() }
	}
	svc, err := app.NewService(cfg, files.CatalogFile{Path: cfg.Data.Catalog}, scorer, nil, logger.New("search"))
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if query == "" && !searchInteractive {
		return errors.New("query required (or use -i)")
	}

	r, closeFn, err := newRanker()
	if err != nil {
		return err
	}
	defer closeFn()

	if searchInteractive {
		return interactive(r, os.Stdin, os.Stdout)
	}
	cands, used, err := r.Rank(query, searchStrategy, searchLimit)
	if err != nil {
		return err
	}
	fmt.Print(formatCandidates(query, used, cands))
	return nil
}

// interactive reads one query per line and prints the top candidates of
// every strategy side by side until EOF, "quit" or "exit".
func interactive(r ranker, in io.Reader, out io.Writer) error {
	strategies := r.Strategies()
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, stylePrompt.Render("query> "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		query := strings.TrimSpace(sc.Text())
		switch query {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		columns := make([][]rank.Candidate, len(strategies))
		for i, st := range strategies {
			cands, _, err := r.Rank(query, st, compareLimit)
			if err != nil {
				fmt.Fprintf(out, "%s %s: %v\n", styleErr.Render("error"), st, err)
				continue
			}
			columns[i] = cands
		}
		fmt.Fprintln(out, compareTable(strategies, columns))
	}
}
