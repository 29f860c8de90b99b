package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/drewfead/marquee/internal"
	"github.com/drewfead/marquee/internal/config"
	"github.com/drewfead/marquee/internal/match"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

const (
	kindMovie   = "movie"
	kindTheater = "theater"
)

type matchOutput struct {
	Kind   string               `json:"kind"`
	A      string               `json:"a"`
	B      string               `json:"b"`
	KeysA  []string             `json:"keys_a"`
	KeysB  []string             `json:"keys_b"`
	Result internal.MatchResult `json:"result"`
}

func (a *app) matchCommand() *cli.Command {
	return &cli.Command{
		Name:      "match",
		Usage:     "score two movie titles or theater names against each other",
		ArgsUsage: "<a> <b>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "movie (strict) or theater (lenient, strips chain affixes)",
				Value: kindMovie,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return fmt.Errorf("match takes exactly two names, got %d", cmd.NArg())
			}
			out := matchOutput{Kind: cmd.String("kind"), A: cmd.Args().Get(0), B: cmd.Args().Get(1)}
			n := a.cfg.Normalizer()
			theaterOpts, movieOpts := a.cfg.MatchOptions()
			switch out.Kind {
			case kindMovie:
				out.KeysA, out.KeysB = []string{n.Name(out.A)}, []string{n.Name(out.B)}
				out.Result = match.Score(out.KeysA[0], out.KeysB[0], movieOpts)
			case kindTheater:
				out.KeysA, out.KeysB = n.TheaterKeys(out.A), n.TheaterKeys(out.B)
				out.Result = match.ScoreKeys(out.KeysA, out.KeysB, theaterOpts)
			default:
				return fmt.Errorf("invalid --kind %q (valid: movie, theater)", out.Kind)
			}
			slog.Debug("root: match", "kind", out.Kind, "a", out.A, "b", out.B, "result", out.Result)

			return emit(cmd, out, func(w io.Writer) error {
				rows := [][]string{
					{out.A, strings.Join(out.KeysA, " | ")},
					{out.B, strings.Join(out.KeysB, " | ")},
				}
				_, err := fmt.Fprintf(w, "%smatched=%t score=%d rule=%s\n",
					renderTable("", []string{"Name", "Normalized"}, rows, nil),
					out.Result.Matched, out.Result.Score, out.Result.Reason)
				return err
			})
		},
	}
}

type normalizeOutput struct {
	Input       string   `json:"input"`
	Name        string   `json:"name"`
	Theater     string   `json:"theater"`
	TheaterKeys []string `json:"theater_keys"`
}

func (a *app) normalizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "show the comparison forms of one or more names",
		ArgsUsage: "<name>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return errors.New("normalize needs at least one name")
			}
			n := a.cfg.Normalizer()
			out := make([]normalizeOutput, 0, cmd.NArg())
			for _, s := range cmd.Args().Slice() {
				out = append(out, normalizeOutput{
					Input:       s,
					Name:        n.Name(s),
					Theater:     n.Theater(s),
					TheaterKeys: n.TheaterKeys(s),
				})
			}
			return emit(cmd, out, func(w io.Writer) error {
				rows := make([][]string, len(out))
				for i, o := range out {
					rows[i] = []string{o.Input, o.Name, o.Theater, strings.Join(o.TheaterKeys, " | ")}
				}
				_, err := io.WriteString(w, renderTable("", []string{"Input", "Name", "Theater", "Theater keys"}, rows, nil))
				return err
			})
		},
	}
}

func (a *app) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage the TOML configuration",
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "write a commented sample config",
				ArgsUsage: "[path]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					path := config.ProjectConfigFile
					if cmd.NArg() > 0 {
						path = cmd.Args().First()
					}
					if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
						return fmt.Errorf("%s already exists (use --force to overwrite)", path)
					} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
						return fmt.Errorf("stat %s: %w", path, err)
					}
					if err := config.CreateSample(path); err != nil {
						return err
					}
					w := cmd.Root().ErrWriter
					if w == nil {
						w = os.Stderr
					}
					_, err := fmt.Fprintf(w, "wrote %s\n", path)
					return err
				},
			},
			{
				Name:  "show",
				Usage: "print the effective configuration",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					shown := *a.cfg
					if shown.TMDB.APIKey != "" {
						shown.TMDB.APIKey = "********"
					}
					return emit(cmd, shown, func(w io.Writer) error {
						data, err := toml.Marshal(shown)
						if err != nil {
							return fmt.Errorf("encode config: %w", err)
						}
						_, err = w.Write(data)
						return err
					})
				},
			},
		},
	}
}
