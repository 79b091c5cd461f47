package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/iced-rs/mdbook-iced/cmd/mdbook-iced/commands"
	"github.com/iced-rs/mdbook-iced/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("mdbook-iced"),
		kong.Description("An mdBook preprocessor to turn iced code blocks into interactive examples."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = kctx.Run(commands.NewGlobal(ctx), cli)
	stop()

	os.Exit(commands.ExitCode(err, cli.Verbose, slog.Default()))
}
