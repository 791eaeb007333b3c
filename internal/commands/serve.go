package commands

import (
	"github.com/spf13/cobra"

	"github.com/fpachecos/dashboard-faturas/internal/importer"
	"github.com/fpachecos/dashboard-faturas/internal/server"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API over the project's storage backend. Requests under
/api identify the user with the ` + server.UserHeader + ` header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			defer p.Close()

			svc, err := p.ingestService(importer.DefaultFormat)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = p.cfg.Server.Addr
			}

			app := server.New(p.backend, svc, p.log)
			ctx := cmd.Context()
			errc := make(chan error, 1)
			go func() {
				errc <- app.Listen(addr)
			}()
			p.log.Info().Str("addr", addr).Msg("listening")

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				p.log.Info().Msg("shutting down")
				return app.Shutdown()
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
