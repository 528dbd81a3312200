package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/docarrow/pkg/config"
	dssource "github.com/ajitpratap0/docarrow/pkg/connector/sources/datastore"
)

// openKindLister is replaced in tests.
var openKindLister = func(ctx context.Context, cfg config.SourceConfig) (dssource.KeyLister, func() error, error) {
	client, err := dssource.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

func newListKindsCommand() *cobra.Command {
	cfg := config.SourceConfig{Type: config.SourceDatastore, ConnectTimeout: 10 * time.Second}

	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the entity kinds of a Datastore project",
		Long: `Kinds runs a keys-only query over the __kind__ metadata kind and prints one
kind name per line. Reserved kinds starting with a double underscore are omitted.
The project defaults to $DATASTORE_PROJECT_ID, then $GOOGLE_CLOUD_PROJECT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Project == "" {
				cfg.Project = firstEnv("DATASTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
			}
			if cfg.Project == "" {
				return fmt.Errorf("--project is required")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			lister, closeFn, err := openKindLister(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			kinds, err := dssource.ListKinds(ctx, lister, cfg.Namespace)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, k := range kinds {
				fmt.Fprintln(out, k)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Project, "project", "", "Google Cloud project ID")
	flags.StringVar(&cfg.Namespace, "namespace", "", "Datastore namespace (default namespace when empty)")
	flags.StringVar(&cfg.CredentialsFile, "credentials", "", "service account credentials file")
	flags.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "client connect timeout")
	return cmd
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}
